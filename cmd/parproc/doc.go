// Command parproc copies the objects under a bucket prefix to a local
// directory on a pool of workers, retrying failed copies and logging
// progress with an estimated time to completion.
//
// Usage:
//
//	parproc download --bucket s3://bucket?region=eu-west-1 --prefix logs/ --dest ./logs
//	parproc config show --format toml
//	parproc config validate --download
//
// Settings come from --config (YAML, TOML or JSON), PARPROC_* environment
// variables and flags, in increasing precedence.
package main
