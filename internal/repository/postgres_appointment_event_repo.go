package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/roomsched/internal/model"
)

// PostgresAppointmentEventRepo はPostgreSQLを使用した予約イベントリポジトリ。
type PostgresAppointmentEventRepo struct {
	db Executor
}

// NewPostgresAppointmentEventRepo はPostgresAppointmentEventRepoを生成する。
func NewPostgresAppointmentEventRepo(db Executor) *PostgresAppointmentEventRepo {
	return &PostgresAppointmentEventRepo{db: db}
}

// Insert は予約イベントを記録する。操作順はsequence列で復元する。
func (r *PostgresAppointmentEventRepo) Insert(ctx context.Context, event model.AppointmentEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO appointment_events
			(id, sequence, event_type, appointment_id, room_id, user_id, start_time, end_time, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		event.ID, int64(event.Sequence), string(event.Type), event.AppointmentID, event.RoomID, event.UserID,
		event.StartTime, event.EndTime, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert appointment event: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AppointmentEventRepository = (*PostgresAppointmentEventRepo)(nil)
