package storage

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type EmailLog struct {
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
