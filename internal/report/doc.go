// Package report turns a run result into something people and tools can read:
// a coloured execution tree for the terminal, and a JSON or YAML document that
// can be written to disk or uploaded to S3 and queried later.
package report
