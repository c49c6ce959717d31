// Package logging builds the zap loggers used by the parproc CLI.
//
// Every logger carries a run_id field so that the lines of one run can
// be correlated across processes and log shippers.
package logging
