// Package yamlconfig provides the YAML implementation of config.Loader. Build
// files are validated against an embedded JSON schema before translation.
package yamlconfig

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/specialistvlad/burstbuild/internal/config"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	yaml "gopkg.in/yaml.v3"
)

//go:embed schema/burstbuild.schema.json
var schemaFS embed.FS

const schemaPath = "schema/burstbuild.schema.json"

var validator = jsonschema.MustCompileString(schemaPath, string(mustReadSchema()))

func mustReadSchema() []byte {
	b, err := fs.ReadFile(schemaFS, schemaPath)
	if err != nil {
		panic(err)
	}
	return b
}

// fileDoc is the top level of a YAML build file. Tasks stay a yaml.Node so
// their declaration order survives decoding.
type fileDoc struct {
	Vars  map[string]any `yaml:"vars"`
	Tasks yaml.Node      `yaml:"tasks"`
}

type taskDoc struct {
	Description   string            `yaml:"description"`
	DependsOn     []string          `yaml:"depends_on"`
	Calls         []string          `yaml:"calls"`
	Commands      []string          `yaml:"commands"`
	Dir           string            `yaml:"dir"`
	Env           map[string]string `yaml:"env"`
	FailIfSkipped bool              `yaml:"fail_if_skipped"`
	Before        []directiveDoc    `yaml:"before"`
	After         []directiveDoc    `yaml:"after"`
}

type directiveDoc struct {
	Name             string `yaml:"name"`
	Run              string `yaml:"run"`
	SkipUnlessExists string `yaml:"skip_unless_exists"`
	SkipIfEnv        string `yaml:"skip_if_env"`
}

// Loader reads burstbuild.yaml files.
type Loader struct {
	overrides map[string]string
	getenv    func(string) string
}

// Option configures a Loader.
type Option func(*Loader)

// WithVars overrides values from the `vars:` section.
func WithVars(vars map[string]string) Option {
	return func(l *Loader) {
		l.overrides = vars
	}
}

// WithGetenv replaces os.Getenv for ${NAME} expansion.
func WithGetenv(getenv func(string) string) Option {
	return func(l *Loader) {
		l.getenv = getenv
	}
}

// NewLoader creates a YAML build-file loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{getenv: os.Getenv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ config.Loader = (*Loader)(nil)

// Load reads each file in order and merges their tasks.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &config.Model{}
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading build file: %w", err)
		}
		m, err := l.Parse(path, src)
		if err != nil {
			return nil, err
		}
		logger.Debug("YAML build file loaded.", "path", path, "tasks", len(m.Tasks))
		model.Merge(m)
	}
	return model, nil
}

// Parse validates and translates a single YAML document. name is used in
// error messages and as the Source of each task.
func (l *Loader) Parse(name string, src []byte) (*config.Model, error) {
	var generic any
	if err := yaml.Unmarshal(src, &generic); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", name, err)
	}
	if err := validator.Validate(generic); err != nil {
		return nil, fmt.Errorf("invalid build file %s: %w", name, err)
	}

	var doc fileDoc
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", name, err)
	}

	expand := l.expander(doc.Vars)
	model := &config.Model{}
	nodes := doc.Tasks.Content
	for i := 0; i+1 < len(nodes); i += 2 {
		taskName := nodes[i].Value
		var td taskDoc
		if err := nodes[i+1].Decode(&td); err != nil {
			return nil, fmt.Errorf("%s:%d: task %q: %w", name, nodes[i].Line, taskName, err)
		}
		model.Tasks = append(model.Tasks, translateTask(fmt.Sprintf("%s:%d", name, nodes[i].Line), taskName, &td, expand))
	}
	return model, nil
}

// expander returns a function that replaces ${NAME} with a variable, falling
// back to the environment. Variable values are expanded against the
// environment only.
func (l *Loader) expander(raw map[string]any) func(string) string {
	vars := make(map[string]string, len(raw)+len(l.overrides))
	for k, v := range raw {
		vars[k] = os.Expand(fmt.Sprint(v), l.getenv)
	}
	for k, v := range l.overrides {
		vars[k] = v
	}
	return func(s string) string {
		return os.Expand(s, func(key string) string {
			if v, ok := vars[key]; ok {
				return v
			}
			return l.getenv(key)
		})
	}
}

func translateTask(source, name string, td *taskDoc, expand func(string) string) *config.Task {
	t := &config.Task{
		Name:          name,
		Description:   expand(td.Description),
		DependsOn:     td.DependsOn,
		Calls:         td.Calls,
		Commands:      expandAll(td.Commands, expand),
		Dir:           expand(td.Dir),
		FailIfSkipped: td.FailIfSkipped,
		Before:        translateDirectives(td.Before, expand),
		After:         translateDirectives(td.After, expand),
		Source:        source,
	}
	if len(td.Env) > 0 {
		t.Env = make(map[string]string, len(td.Env))
		for k, v := range td.Env {
			t.Env[k] = expand(v)
		}
	}
	return t
}

func translateDirectives(docs []directiveDoc, expand func(string) string) []*config.Directive {
	out := make([]*config.Directive, 0, len(docs))
	for _, d := range docs {
		out = append(out, &config.Directive{
			Name:             d.Name,
			Run:              expand(d.Run),
			SkipUnlessExists: expand(d.SkipUnlessExists),
			SkipIfEnv:        strings.TrimSpace(d.SkipIfEnv),
		})
	}
	return out
}

func expandAll(in []string, expand func(string) string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = expand(s)
	}
	return out
}
