// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// An App is created from a build file: the file is loaded through a
// config.Loader, turned into a task registry by the builder, and linted.
// App.Run then drives the processor with metrics, notification and logging
// observers attached and renders the result.
package app
