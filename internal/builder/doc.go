/*
Package builder is the bridge between the static build-file model (defined in
the 'config' package) and the execution engine (the 'processor' package).

The primary artifact produced by this package is a *task.Registry whose tasks
carry ready-to-run bodies and directives.

Every config.Task becomes one task.Task:

 1. Body: the task's `calls` are made through task.Context.Call in order, then
    its `commands` run in order through the shell runner. The body returns the
    captured standard output of its commands, joined by newlines.

 2. Directives: each `before`/`after` block becomes a task.Directive. The skip
    conditions are checked first (`skip_unless_exists`, then `skip_if_env`),
    then `run` must exit successfully.

 3. Working directory: a relative `dir` is resolved against the builder's base
    directory (normally the directory holding the build file). The processor
    enters it before the directives run.

The registry is only assembled here. Unknown dependencies and cycles are
reported by the resolver when the registry is linted or run.
*/
package builder
