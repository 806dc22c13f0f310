package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/burstbuild/internal/config"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	overrides map[string]string
	environ   func() []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithVars overrides variable defaults. Overrides may also set variables
// that have no default.
func WithVars(vars map[string]string) Option {
	return func(l *Loader) {
		l.overrides = vars
	}
}

// WithEnviron replaces os.Environ as the source of `env.*`.
func WithEnviron(environ func() []string) Option {
	return func(l *Loader) {
		l.environ = environ
	}
}

// NewLoader creates a new HCL build-file loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{environ: os.Environ}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type parsedFile struct {
	path string
	root variablesRoot
}

// Load parses every .hcl file found in paths. Variables from all files share
// one namespace and are evaluated before any task block is decoded.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	var files []parsedFile
	var variables []*variableBlock
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root variablesRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		files = append(files, parsedFile{path: file, root: root})
		variables = append(variables, root.Variables...)
	}

	env := environObject(l.environ())
	vars, err := l.evalVariables(variables, env)
	if err != nil {
		return nil, err
	}
	evalCtx := newEvalContext(env, vars)

	model := &config.Model{}
	for _, f := range files {
		var root tasksRoot
		if diags := gohcl.DecodeBody(f.root.Remain, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", f.path, diags)
		}
		for _, t := range root.Tasks {
			model.Tasks = append(model.Tasks, translateTask(f.path, t))
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "variables", len(vars), "tasks", len(model.Tasks))
	return model, nil
}

func (l *Loader) evalVariables(blocks []*variableBlock, env cty.Value) (map[string]cty.Value, error) {
	vars := make(map[string]cty.Value, len(blocks))
	defaultsCtx := newEvalContext(env, nil)
	for _, v := range blocks {
		if _, dup := vars[v.Name]; dup {
			return nil, fmt.Errorf("variable %q is declared more than once", v.Name)
		}
		if override, ok := l.overrides[v.Name]; ok {
			vars[v.Name] = cty.StringVal(override)
			continue
		}
		if v.Default == nil {
			return nil, fmt.Errorf("variable %q has no default and no value was given", v.Name)
		}
		val, diags := v.Default.Value(defaultsCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating default of variable %q: %w", v.Name, diags)
		}
		if val.IsNull() {
			return nil, fmt.Errorf("variable %q has no default and no value was given", v.Name)
		}
		vars[v.Name] = val
	}
	for name, override := range l.overrides {
		if _, ok := vars[name]; !ok {
			vars[name] = cty.StringVal(override)
		}
	}
	return vars, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found, sorted within each directory.
func findAllHCLFiles(paths []string) ([]string, error) {
	return fsutil.ExpandPaths(paths, func(p string) bool {
		return filepath.Ext(p) == ".hcl"
	})
}

var _ config.Loader = (*Loader)(nil)
