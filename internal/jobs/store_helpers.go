package jobs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const jobColumns = "id, state, created_at, updated_at, progress, output_path, error_kind, error_message, stderr_tail, render_time_ms, result_json"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		stateStr     string
		createdRaw   string
		updatedRaw   string
		progress     float64
		outputPath   sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		stderrTail   sql.NullString
		renderTimeMs int64
		resultJSON   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&stateStr,
		&createdRaw,
		&updatedRaw,
		&progress,
		&outputPath,
		&errorKind,
		&errorMessage,
		&stderrTail,
		&renderTimeMs,
		&resultJSON,
	); err != nil {
		return nil, err
	}

	createdAt, err := parseTimestamp(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := parseTimestamp(updatedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	job := &Job{
		ID:           id,
		State:        State(stateStr),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		Progress:     progress,
		OutputPath:   outputPath.String,
		ErrorKind:    errorKind.String,
		ErrorMessage: errorMessage.String,
		StderrTail:   stderrTail.String,
		RenderTimeMs: renderTimeMs,
	}

	if resultJSON.Valid && resultJSON.String != "" {
		var result Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		job.Result = &result
	}

	return job, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
