package handler

import (
	"context"
	"time"

	"github.com/hitoshi/roomsched/internal/model"
	"github.com/hitoshi/roomsched/internal/scheduling"
)

// SchedulingServiceAdapter は scheduling.Engine を AppointmentServiceInterface に適合させるアダプタ。
type SchedulingServiceAdapter struct {
	engine *scheduling.Engine
}

// NewSchedulingServiceAdapter はSchedulingServiceAdapterを生成する。
func NewSchedulingServiceAdapter(engine *scheduling.Engine) *SchedulingServiceAdapter {
	return &SchedulingServiceAdapter{engine: engine}
}

// Create は予約を作成しhandlerレスポンス型で返す。
func (a *SchedulingServiceAdapter) Create(ctx context.Context, roomID string, start, end time.Time, userID string) (*appointmentResponse, error) {
	appt, err := a.engine.Create(ctx, roomID, start, end, userID)
	if err != nil {
		return nil, err
	}
	resp := toAppointmentResponse(*appt)
	return &resp, nil
}

// List は予約一覧をhandlerレスポンス型で返す。
func (a *SchedulingServiceAdapter) List(ctx context.Context) []appointmentResponse {
	appts := a.engine.List(ctx)
	results := make([]appointmentResponse, len(appts))
	for i, appt := range appts {
		results[i] = toAppointmentResponse(appt)
	}
	return results
}

// Cancel は予約を取り消す。
func (a *SchedulingServiceAdapter) Cancel(ctx context.Context, appointmentID, userID string) error {
	return a.engine.Cancel(ctx, appointmentID, userID)
}

// toAppointmentResponse はドメインのAppointmentをhandlerのレスポンス型に変換する。
func toAppointmentResponse(appt model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:        appt.ID,
		RoomID:    appt.RoomID,
		UserID:    appt.UserID,
		StartTime: model.FormatInstant(appt.StartTime),
		EndTime:   model.FormatInstant(appt.EndTime),
	}
}
