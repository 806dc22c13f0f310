package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/result"
	yaml "gopkg.in/yaml.v3"
)

// Format names a document encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFor picks the encoding from a file name. Anything that is not .yaml
// or .yml is JSON.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Document is the persisted form of a result.
type Document struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Task       string    `json:"task" yaml:"task"`
	Success    bool      `json:"success" yaml:"success"`
	Value      string    `json:"value,omitempty" yaml:"value,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorType  string    `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	Trace      string    `json:"trace,omitempty" yaml:"trace,omitempty"`
	CauseID    int       `json:"cause_id,omitempty" yaml:"cause_id,omitempty"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	Roots      []*Node   `json:"roots" yaml:"roots"`
	Failures   []int     `json:"failures,omitempty" yaml:"failures,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// Node is one execution in a Document.
type Node struct {
	ID         int       `json:"id" yaml:"id"`
	Task       string    `json:"task" yaml:"task"`
	Kind       string    `json:"kind" yaml:"kind"`
	State      string    `json:"state" yaml:"state"`
	History    []string  `json:"history" yaml:"history"`
	Start      time.Time `json:"start" yaml:"start"`
	End        time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	Value      string    `json:"value,omitempty" yaml:"value,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorType  string    `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	OriginalID int       `json:"original_id,omitempty" yaml:"original_id,omitempty"`
	BlameID    int       `json:"blame_id,omitempty" yaml:"blame_id,omitempty"`
	Children   []*Node   `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewDocument snapshots res. createdAt is stamped on the document as given.
func NewDocument(res *result.Result, createdAt time.Time) *Document {
	doc := &Document{
		RunID:      res.RunID,
		Task:       res.Task.Name,
		Success:    res.Success,
		Value:      stringify(res.Value),
		ErrorType:  res.ErrType,
		Trace:      res.Trace,
		DurationMS: res.Duration.Milliseconds(),
		CreatedAt:  createdAt,
	}
	if res.Err != nil {
		doc.Error = res.Err.Error()
	}
	if cause := res.Cause(); cause != nil {
		doc.CauseID = cause.ID
	}
	for _, root := range res.Roots {
		doc.Roots = append(doc.Roots, newNode(root))
	}
	for _, ex := range res.Failures() {
		doc.Failures = append(doc.Failures, ex.ID)
	}
	return doc
}

func newNode(ex *execution.Execution) *Node {
	n := &Node{
		ID:         ex.ID,
		Task:       ex.Task.Name,
		Kind:       ex.Kind.String(),
		State:      ex.State().String(),
		Start:      ex.StartTime,
		End:        ex.EndTime,
		DurationMS: ex.Duration().Milliseconds(),
		Value:      stringify(ex.Result),
		ErrorType:  ex.ErrType,
		OriginalID: ex.OriginalID,
		BlameID:    ex.BlameID,
	}
	for _, s := range ex.History() {
		n.History = append(n.History, s.String())
	}
	if ex.Err != nil {
		n.Error = ex.Err.Error()
	}
	for _, c := range ex.Children {
		n.Children = append(n.Children, newNode(c))
	}
	return n
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Marshal encodes doc in the given format.
func Marshal(doc *Document, format Format) ([]byte, error) {
	switch format {
	case JSON:
		return json.MarshalIndent(doc, "", "  ")
	case YAML:
		return yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}
