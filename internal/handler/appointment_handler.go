package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/roomsched/internal/model"
)

// AppointmentServiceInterface は予約ハンドラーが必要とするサービスインターフェース。
type AppointmentServiceInterface interface {
	// Create は予約を作成しhandlerレスポンス型で返す。
	Create(ctx context.Context, roomID string, start, end time.Time, userID string) (*appointmentResponse, error)
	// List は作成順の予約一覧を返す。
	List(ctx context.Context) []appointmentResponse
	// Cancel は予約を取り消す。作成者以外はFORBIDDEN。
	Cancel(ctx context.Context, appointmentID, userID string) error
}

// AppointmentHandler は予約管理のHTTPハンドラー。
type AppointmentHandler struct {
	service AppointmentServiceInterface
}

// NewAppointmentHandler はAppointmentHandlerを生成する。
func NewAppointmentHandler(service AppointmentServiceInterface) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// appointmentResponse は予約のAPIレスポンス。時刻は正規形の文字列で返す。
type appointmentResponse struct {
	ID        string `json:"id"`
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// createAppointmentRequest は予約作成リクエストのボディ。
type createAppointmentRequest struct {
	RoomID    string `json:"roomId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// CreateAppointment は会議室の予約を作成する。
// POST /appointments
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if strings.TrimSpace(req.RoomID) == "" {
		handleServiceError(w, r, model.NewMalformedInputError("roomId は必須です"))
		return
	}
	start, err := parseInstant("startTime", req.StartTime)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	end, err := parseInstant("endTime", req.EndTime)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	appt, err := h.service.Create(r.Context(), req.RoomID, start, end, user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/appointments/"+appt.ID)
	writeJSON(w, http.StatusCreated, appt)
}

// ListAppointments は全ての予約を作成順で返す。
// GET /appointments
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.List(r.Context()))
}

// CancelAppointment は予約を取り消す。
// DELETE /appointments/{id}
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	appointmentID := chi.URLParam(r, "id")
	if err := h.service.Cancel(r.Context(), appointmentID, user.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseInstant はISO-8601（RFC 3339）形式の時刻文字列を解析する。
// 空文字や解析できない値はMALFORMED_INPUTとする。
func parseInstant(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, model.NewMalformedInputError(field + " は必須です")
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, model.NewMalformedInputError(field + " を時刻として解析できません")
	}
	return t, nil
}
