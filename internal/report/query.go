package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	yaml "gopkg.in/yaml.v3"
)

// ErrNoMatch is returned by Query when the path selects nothing.
var ErrNoMatch = errors.New("no match")

// ReadFile loads a saved report and returns it as JSON, converting YAML
// reports on the way.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	if FormatFor(path) == JSON {
		return data, nil
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to parse YAML report %s: %w", path, err)
	}
	return json.Marshal(generic)
}

// Query evaluates a gjson path such as "roots.0.children.#.task" against a
// JSON report. An empty path returns the whole document.
func Query(data []byte, path string) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", errors.New("report is not valid JSON")
	}
	if path == "" {
		return string(data), nil
	}
	r := gjson.GetBytes(data, path)
	if !r.Exists() {
		return "", fmt.Errorf("%w for %q", ErrNoMatch, path)
	}
	return r.String(), nil
}
