package model

import "time"

// InstantLayout は予約時刻の正規テキスト表現（UTC・ミリ秒精度）。
const InstantLayout = "2006-01-02T15:04:05.000Z"

// Appointment は会議室の予約を表す。
// 時間帯は半開区間 [StartTime, EndTime) として扱う。
type Appointment struct {
	ID        string
	RoomID    string
	UserID    string
	StartTime time.Time
	EndTime   time.Time
}

// Overlaps は同じ会議室の予約aとbの時間帯が重なるかを返す。
// 終了時刻と開始時刻が一致するだけの隣接予約は重ならない。
func (a *Appointment) Overlaps(b *Appointment) bool {
	return a.StartTime.Before(b.EndTime) && a.EndTime.After(b.StartTime)
}

// NormalizeInstant は時刻をUTC・ミリ秒精度に正規化する。
func NormalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FormatInstant は時刻を正規テキスト表現に変換する。
func FormatInstant(t time.Time) string {
	return NormalizeInstant(t).Format(InstantLayout)
}

// AppointmentEventType は予約ライフサイクルイベントの種別を表す。
type AppointmentEventType string

const (
	// AppointmentCreated は予約が作成されたことを示す。
	AppointmentCreated AppointmentEventType = "appointment.created"
	// AppointmentCancelled は予約が取り消されたことを示す。
	AppointmentCancelled AppointmentEventType = "appointment.cancelled"
)

// AppointmentEvent は予約の作成・取消を監査ログやキューへ通知するためのイベント。
// Sequenceはエンジン内で操作ごとに単調増加する通番で、通知先での並び替えに使う。
type AppointmentEvent struct {
	ID            string
	Sequence      uint64
	Type          AppointmentEventType
	AppointmentID string
	RoomID        string
	UserID        string
	StartTime     time.Time
	EndTime       time.Time
	OccurredAt    time.Time
}
