package deliverylog

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sungwon/email-dispatch/internal/delivery"
	"github.com/sungwon/email-dispatch/internal/storage"
)

func toParams(id uuid.UUID, rec *delivery.Record) storage.InsertEmailLogParams {
	p := storage.InsertEmailLogParams{
		ID:               id,
		ToEmail:          rec.ToEmail,
		ToName:           optText(rec.ToName),
		Subject:          rec.Subject,
		Status:           string(rec.Status),
		Provider:         optText(rec.Provider),
		EventType:        optText(rec.EventType),
		RelatedUserID:    optText(rec.RelatedUserID),
		RelatedProjectID: optText(rec.RelatedProjectID),
		CreatedAt:        pgtype.Timestamptz{Time: rec.CreatedAt, Valid: true},
	}
	if rec.MessageID != nil {
		p.MessageID = pgtype.Text{String: *rec.MessageID, Valid: true}
	}
	if rec.ErrorMessage != nil {
		p.ErrorMessage = pgtype.Text{String: *rec.ErrorMessage, Valid: true}
	}
	if rec.SentAt != nil {
		p.SentAt = pgtype.Timestamptz{Time: *rec.SentAt, Valid: true}
	}
	return p
}

func fromRow(row storage.EmailLog) *delivery.Record {
	rec := &delivery.Record{
		ID:               row.ID.String(),
		ToEmail:          row.ToEmail,
		ToName:           row.ToName.String,
		Subject:          row.Subject,
		Status:           delivery.Status(row.Status),
		CreatedAt:        row.CreatedAt.Time.UTC(),
		Provider:         row.Provider.String,
		EventType:        row.EventType.String,
		RelatedUserID:    row.RelatedUserID.String,
		RelatedProjectID: row.RelatedProjectID.String,
	}
	if row.MessageID.Valid {
		rec.MessageID = &row.MessageID.String
	}
	if row.ErrorMessage.Valid {
		rec.ErrorMessage = &row.ErrorMessage.String
	}
	if row.SentAt.Valid {
		t := row.SentAt.Time.UTC()
		rec.SentAt = &t
	}
	return rec
}

func optText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

