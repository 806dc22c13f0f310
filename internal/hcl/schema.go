package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// variablesRoot decodes the `variable` blocks of a file and leaves the rest
// of the body for the second pass.
type variablesRoot struct {
	Variables []*variableBlock `hcl:"variable,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

// tasksRoot decodes what remains of a file once variables are known.
type tasksRoot struct {
	Tasks []*taskBlock `hcl:"task,block"`
}

// variableBlock represents a `variable "name" { default = ... }` block.
type variableBlock struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}

// taskBlock represents a `task "name" { ... }` block.
type taskBlock struct {
	Name          string            `hcl:"name,label"`
	Description   string            `hcl:"description,optional"`
	DependsOn     []string          `hcl:"depends_on,optional"`
	Calls         []string          `hcl:"calls,optional"`
	Commands      []string          `hcl:"commands,optional"`
	Dir           string            `hcl:"dir,optional"`
	Env           map[string]string `hcl:"env,optional"`
	FailIfSkipped bool              `hcl:"fail_if_skipped,optional"`
	Before        []*directiveBlock `hcl:"before,block"`
	After         []*directiveBlock `hcl:"after,block"`
}

// directiveBlock represents a `before "name" {}` or `after "name" {}` block.
type directiveBlock struct {
	Name             string `hcl:"name,label"`
	Run              string `hcl:"run,optional"`
	SkipUnlessExists string `hcl:"skip_unless_exists,optional"`
	SkipIfEnv        string `hcl:"skip_if_env,optional"`
}
