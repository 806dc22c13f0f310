// Package hcl provides the HCL implementation of config.Loader. It parses
// `variable` and `task` blocks, evaluates expressions against the process
// environment and declared variables, and translates the result into the
// format-agnostic config.Model.
package hcl
