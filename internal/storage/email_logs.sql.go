// source: email_logs.sql

package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const countEmailLogs = `-- name: CountEmailLogs :one
SELECT COUNT(*) FROM email_logs
WHERE ($1::text IS NULL OR status = $1::text)
`

func (q *Queries) CountEmailLogs(ctx context.Context, status pgtype.Text) (int64, error) {
	row := q.db.QueryRow(ctx, countEmailLogs, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const emailLogStats = `-- name: EmailLogStats :one
SELECT
    COUNT(*)::bigint AS total,
    COUNT(*) FILTER (WHERE status = 'sent')::bigint AS successful,
    COUNT(*) FILTER (WHERE status = 'failed')::bigint AS failed,
    COUNT(DISTINCT to_email)::bigint AS unique_recipients
FROM email_logs
`

type EmailLogStatsRow struct {
	Total            int64 `json:"total"`
	Successful       int64 `json:"successful"`
	Failed           int64 `json:"failed"`
	UniqueRecipients int64 `json:"unique_recipients"`
}

func (q *Queries) EmailLogStats(ctx context.Context) (EmailLogStatsRow, error) {
	row := q.db.QueryRow(ctx, emailLogStats)
	var i EmailLogStatsRow
	err := row.Scan(
		&i.Total,
		&i.Successful,
		&i.Failed,
		&i.UniqueRecipients,
	)
	return i, err
}

const insertEmailLog = `-- name: InsertEmailLog :one
INSERT INTO email_logs (
    id, to_email, to_name, subject, status, provider, message_id,
    error_message, event_type, related_user_id, related_project_id,
    created_at, sent_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
)
RETURNING id, to_email, to_name, subject, status, provider, message_id, error_message, event_type, related_user_id, related_project_id, created_at, sent_at
`

type InsertEmailLogParams struct {
	ID               uuid.UUID          `json:"id"`
	ToEmail          string             `json:"to_email"`
	ToName           pgtype.Text        `json:"to_name"`
	Subject          string             `json:"subject"`
	Status           string             `json:"status"`
	Provider         pgtype.Text        `json:"provider"`
	MessageID        pgtype.Text        `json:"message_id"`
	ErrorMessage     pgtype.Text        `json:"error_message"`
	EventType        pgtype.Text        `json:"event_type"`
	RelatedUserID    pgtype.Text        `json:"related_user_id"`
	RelatedProjectID pgtype.Text        `json:"related_project_id"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
	SentAt           pgtype.Timestamptz `json:"sent_at"`
}

func (q *Queries) InsertEmailLog(ctx context.Context, arg InsertEmailLogParams) (EmailLog, error) {
	row := q.db.QueryRow(ctx, insertEmailLog,
		arg.ID,
		arg.ToEmail,
		arg.ToName,
		arg.Subject,
		arg.Status,
		arg.Provider,
		arg.MessageID,
		arg.ErrorMessage,
		arg.EventType,
		arg.RelatedUserID,
		arg.RelatedProjectID,
		arg.CreatedAt,
		arg.SentAt,
	)
	var i EmailLog
	err := row.Scan(
		&i.ID,
		&i.ToEmail,
		&i.ToName,
		&i.Subject,
		&i.Status,
		&i.Provider,
		&i.MessageID,
		&i.ErrorMessage,
		&i.EventType,
		&i.RelatedUserID,
		&i.RelatedProjectID,
		&i.CreatedAt,
		&i.SentAt,
	)
	return i, err
}

const listEmailLogs = `-- name: ListEmailLogs :many
SELECT id, to_email, to_name, subject, status, provider, message_id, error_message, event_type, related_user_id, related_project_id, created_at, sent_at FROM email_logs
WHERE ($1::text IS NULL OR status = $1::text)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

type ListEmailLogsParams struct {
	Status pgtype.Text `json:"status"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListEmailLogs(ctx context.Context, arg ListEmailLogsParams) ([]EmailLog, error) {
	rows, err := q.db.Query(ctx, listEmailLogs, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EmailLog
	for rows.Next() {
		var i EmailLog
		if err := rows.Scan(
			&i.ID,
			&i.ToEmail,
			&i.ToName,
			&i.Subject,
			&i.Status,
			&i.Provider,
			&i.MessageID,
			&i.ErrorMessage,
			&i.EventType,
			&i.RelatedUserID,
			&i.RelatedProjectID,
			&i.CreatedAt,
			&i.SentAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
