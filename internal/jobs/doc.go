// Package jobs persists render jobs and aggregate statistics in SQLite.
package jobs
