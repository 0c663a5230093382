// Package logs reads runqd log files for the CLI.
//
// Last lines are read with a bounded ring buffer. Follow mode polls the file
// and re-resolves the runqd.log pointer on every poll, so a daemon restart
// that starts a new run log is picked up without restarting the reader.
package logs
