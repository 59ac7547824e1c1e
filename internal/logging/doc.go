// Package logging constructs slog loggers for the daemon and CLI.
//
// Two output formats are supported: a human-oriented console format used by
// interactive commands and a JSON format suited to log shipping. Helpers in
// attrs.go keep attribute construction terse at call sites.
package logging
