// Package config defines the format-agnostic build-file model and the
// Loader interface implemented by the HCL and YAML loaders.
//
// A `config.Model` is the single input of the builder package, which turns
// it into a task registry. Concrete loaders live in separate packages.
package config
