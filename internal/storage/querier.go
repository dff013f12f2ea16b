package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	CountEmailLogs(ctx context.Context, status pgtype.Text) (int64, error)
	EmailLogStats(ctx context.Context) (EmailLogStatsRow, error)
	InsertEmailLog(ctx context.Context, arg InsertEmailLogParams) (EmailLog, error)
	ListEmailLogs(ctx context.Context, arg ListEmailLogsParams) ([]EmailLog, error)
}

var _ Querier = (*Queries)(nil)
