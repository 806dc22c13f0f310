package hcl

import (
	"github.com/specialistvlad/burstbuild/internal/config"
)

// translateTask converts the HCL-specific task schema into the agnostic model.
func translateTask(source string, t *taskBlock) *config.Task {
	return &config.Task{
		Name:          t.Name,
		Description:   t.Description,
		DependsOn:     t.DependsOn,
		Calls:         t.Calls,
		Commands:      t.Commands,
		Dir:           t.Dir,
		Env:           t.Env,
		FailIfSkipped: t.FailIfSkipped,
		Before:        translateDirectives(t.Before),
		After:         translateDirectives(t.After),
		Source:        source,
	}
}

func translateDirectives(blocks []*directiveBlock) []*config.Directive {
	out := make([]*config.Directive, 0, len(blocks))
	for _, d := range blocks {
		out = append(out, &config.Directive{
			Name:             d.Name,
			Run:              d.Run,
			SkipUnlessExists: d.SkipUnlessExists,
			SkipIfEnv:        d.SkipIfEnv,
		})
	}
	return out
}
