// Package queue はメッセージブローカー（RabbitMQ）への予約イベント送信を提供する。
package queue

import "github.com/hitoshi/roomsched/internal/model"

// AppointmentEventMessage はブローカーに送信する予約イベントのペイロード。
// 下流のコンシューマーが予約APIを問い合わせずに通知や集計を行えるだけの情報を含む。
// 到着順は操作順と一致しないことがあるため、コンシューマーはsequenceで並べ替える。
type AppointmentEventMessage struct {
	EventID       string `json:"event_id"`
	Sequence      uint64 `json:"sequence"`
	EventType     string `json:"event_type"`
	AppointmentID string `json:"appointment_id"`
	RoomID        string `json:"room_id"`
	UserID        string `json:"user_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	OccurredAt    string `json:"occurred_at"`
}

// NewAppointmentEventMessage は予約イベントからメッセージを生成する。
// 時刻は予約APIと同じ正規テキスト表現にそろえる。
func NewAppointmentEventMessage(ev model.AppointmentEvent) AppointmentEventMessage {
	return AppointmentEventMessage{
		EventID:       ev.ID,
		Sequence:      ev.Sequence,
		EventType:     string(ev.Type),
		AppointmentID: ev.AppointmentID,
		RoomID:        ev.RoomID,
		UserID:        ev.UserID,
		StartTime:     model.FormatInstant(ev.StartTime),
		EndTime:       model.FormatInstant(ev.EndTime),
		OccurredAt:    model.FormatInstant(ev.OccurredAt),
	}
}
