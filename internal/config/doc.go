// Package config defines configuration for the parproc CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (PARPROC_ prefix)
//   - A YAML, TOML or JSON configuration file
//
// Flags override the environment, which overrides the file. Durations
// use time.ParseDuration syntax everywhere.
//
// # Example
//
//	workers: 8
//	report_interval: 5s
//	retry:
//	  max_attempts: 10
//	  initial: 200ms
//	  max: 30s
//	download:
//	  bucket: s3://my-bucket?region=eu-west-1
//	  prefix: logs/2026/
//	  dest: ./logs
package config
