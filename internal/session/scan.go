package session

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const sessionColumns = "id, status, video_path, source_language, target_language, duration_seconds, segment_count, degraded_count, overrun_count, failure_kind, error_message, created_at, updated_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		sess        Session
		status      string
		videoPath   sql.NullString
		sourceLang  sql.NullString
		targetLang  sql.NullString
		failureKind sql.NullString
		errorMsg    sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&sess.ID,
		&status,
		&videoPath,
		&sourceLang,
		&targetLang,
		&sess.DurationSeconds,
		&sess.SegmentCount,
		&sess.DegradedCount,
		&sess.OverrunCount,
		&failureKind,
		&errorMsg,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	sess.Status = Status(status)
	sess.VideoPath = videoPath.String
	sess.SourceLanguage = sourceLang.String
	sess.TargetLanguage = targetLang.String
	sess.FailureKind = failureKind.String
	sess.ErrorMessage = errorMsg.String
	if created, err := parseTime(createdRaw); err == nil {
		sess.CreatedAt = created
	}
	if updated, err := parseTime(updatedRaw); err == nil {
		sess.UpdatedAt = updated
	}
	return &sess, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(timeLayout, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
