// Package scheduling は会議室予約の作成・一覧・取消と時間帯の重複検出を提供する。
package scheduling

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/roomsched/internal/model"
)

// RoomLookup は会議室の存在確認を行うインターフェース。
type RoomLookup interface {
	Exists(roomID string) bool
}

// EventRecorder は予約のライフサイクルイベントを受け取るインターフェース。
// 記録の失敗は予約操作の結果に影響させないため、エラーは返さない。
type EventRecorder interface {
	RecordAppointmentEvent(ctx context.Context, event model.AppointmentEvent)
}

// MetricsRecorder は予約操作のメトリクスを記録するインターフェース。
type MetricsRecorder interface {
	RecordAppointmentCreated()
	RecordAppointmentCancelled()
	RecordAppointmentRejected(reason string)
	SetActiveAppointments(n int)
}

// 予約拒否理由（メトリクスのラベル値）
const (
	RejectInvalidRange = "invalid_range"
	RejectRoomNotFound = "room_not_found"
	RejectConflict     = "conflict"
)

// Engine はメモリ上で予約を保持し、重複のない予約だけを受け付ける。
// 作成・取消は単一のミューテックスで直列化し、確認と追加を不可分に行う。
type Engine struct {
	rooms RoomLookup

	mu           sync.RWMutex
	appointments map[string]*model.Appointment
	order        []string            // 作成順の予約ID
	byRoom       map[string][]string // 会議室ごとの予約ID
	seq          uint64              // 最後に発行したイベントの通番

	recorder EventRecorder
	metrics  MetricsRecorder
	newID    func() string
	now      func() time.Time
}

// NewEngine はEngineを生成する。
func NewEngine(rooms RoomLookup) *Engine {
	return &Engine{
		rooms:        rooms,
		appointments: make(map[string]*model.Appointment),
		byRoom:       make(map[string][]string),
		newID:        func() string { return uuid.New().String() },
		now:          time.Now,
	}
}

// SetEventRecorder は予約イベントの通知先を設定する。
func (e *Engine) SetEventRecorder(r EventRecorder) {
	e.recorder = r
}

// SetMetrics は予約操作のメトリクス記録先を設定する。
func (e *Engine) SetMetrics(m MetricsRecorder) {
	e.metrics = m
}

// Create は会議室roomIDに [start, end) の予約を作成する。
// 時刻はUTC・ミリ秒精度に正規化してから検証する。
//
// 失敗条件:
//   - start >= end の場合はINVALID_RANGE（会議室の有無に関わらない）
//   - 会議室が存在しない場合はROOM_NOT_FOUND
//   - 同じ会議室の既存予約と時間帯が重なる場合はCONFLICT
//
// いずれかで失敗した場合、状態は変化しない。
func (e *Engine) Create(ctx context.Context, roomID string, start, end time.Time, userID string) (*model.Appointment, error) {
	start = model.NormalizeInstant(start)
	end = model.NormalizeInstant(end)

	if !start.Before(end) {
		e.recordRejected(RejectInvalidRange)
		return nil, model.NewInvalidRangeError()
	}

	if !e.rooms.Exists(roomID) {
		e.recordRejected(RejectRoomNotFound)
		return nil, model.NewRoomNotFoundError(roomID)
	}

	candidate := &model.Appointment{
		RoomID:    roomID,
		UserID:    userID,
		StartTime: start,
		EndTime:   end,
	}

	e.mu.Lock()
	for _, id := range e.byRoom[roomID] {
		if e.appointments[id].Overlaps(candidate) {
			e.mu.Unlock()
			e.recordRejected(RejectConflict)
			slog.InfoContext(ctx, "appointment conflict",
				slog.String("room_id", roomID),
				slog.String("conflicting_id", id),
			)
			return nil, model.NewConflictError(roomID)
		}
	}

	candidate.ID = e.newID()
	e.appointments[candidate.ID] = candidate
	e.order = append(e.order, candidate.ID)
	e.byRoom[roomID] = append(e.byRoom[roomID], candidate.ID)
	active := len(e.appointments)
	created := *candidate
	e.seq++
	seq := e.seq
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordAppointmentCreated()
		e.metrics.SetActiveAppointments(active)
	}

	slog.InfoContext(ctx, "appointment created",
		slog.String("appointment_id", created.ID),
		slog.String("room_id", created.RoomID),
		slog.String("user_id", created.UserID),
	)
	e.emit(ctx, seq, model.AppointmentCreated, &created)

	return &created, nil
}

// List は作成順の予約一覧のコピーを返す。
func (e *Engine) List(_ context.Context) []model.Appointment {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Appointment, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.appointments[id])
	}
	return out
}

// Cancel は予約を取り消す。取消は不可逆で、予約を削除する唯一の手段。
// 予約が存在しない場合はAPPOINTMENT_NOT_FOUND、作成者以外の場合はFORBIDDENを返す。
func (e *Engine) Cancel(ctx context.Context, appointmentID, userID string) error {
	e.mu.Lock()
	appt, ok := e.appointments[appointmentID]
	if !ok {
		e.mu.Unlock()
		return model.NewAppointmentNotFoundError(appointmentID)
	}
	if appt.UserID != userID {
		e.mu.Unlock()
		slog.WarnContext(ctx, "appointment cancel forbidden",
			slog.String("appointment_id", appointmentID),
			slog.String("user_id", userID),
		)
		return model.NewForbiddenError()
	}

	delete(e.appointments, appointmentID)
	e.order = removeID(e.order, appointmentID)
	e.byRoom[appt.RoomID] = removeID(e.byRoom[appt.RoomID], appointmentID)
	if len(e.byRoom[appt.RoomID]) == 0 {
		delete(e.byRoom, appt.RoomID)
	}
	active := len(e.appointments)
	e.seq++
	seq := e.seq
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordAppointmentCancelled()
		e.metrics.SetActiveAppointments(active)
	}

	slog.InfoContext(ctx, "appointment cancelled",
		slog.String("appointment_id", appointmentID),
		slog.String("user_id", userID),
	)
	e.emit(ctx, seq, model.AppointmentCancelled, appt)

	return nil
}

func (e *Engine) recordRejected(reason string) {
	if e.metrics != nil {
		e.metrics.RecordAppointmentRejected(reason)
	}
}

// emit はロック解放後に呼び出す。seqはロック中に採番した通番で、
// 通知先への到着順が入れ替わっても操作の順序を復元できる。
func (e *Engine) emit(ctx context.Context, seq uint64, typ model.AppointmentEventType, appt *model.Appointment) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordAppointmentEvent(ctx, model.AppointmentEvent{
		ID:            e.newID(),
		Sequence:      seq,
		Type:          typ,
		AppointmentID: appt.ID,
		RoomID:        appt.RoomID,
		UserID:        appt.UserID,
		StartTime:     appt.StartTime,
		EndTime:       appt.EndTime,
		OccurredAt:    e.now().UTC(),
	})
}

func removeID(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
