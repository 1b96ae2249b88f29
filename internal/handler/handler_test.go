package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/roomsched/internal/middleware"
	"github.com/hitoshi/roomsched/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn func(ctx context.Context, username, password string) (string, error)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return "", nil
}

type mockRoomService struct {
	rooms []model.Room
}

func (m *mockRoomService) ListRooms() []model.Room {
	return m.rooms
}

type mockAppointmentService struct {
	createFn func(ctx context.Context, roomID string, start, end time.Time, userID string) (*appointmentResponse, error)
	listFn   func(ctx context.Context) []appointmentResponse
	cancelFn func(ctx context.Context, appointmentID, userID string) error
}

func (m *mockAppointmentService) Create(ctx context.Context, roomID string, start, end time.Time, userID string) (*appointmentResponse, error) {
	if m.createFn != nil {
		return m.createFn(ctx, roomID, start, end, userID)
	}
	return nil, nil
}

func (m *mockAppointmentService) List(ctx context.Context) []appointmentResponse {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil
}

func (m *mockAppointmentService) Cancel(ctx context.Context, appointmentID, userID string) error {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, appointmentID, userID)
	}
	return nil
}

// --- ヘルパー ---

var testUser = &model.User{ID: "user-1", Username: "funcionario1", Password: "password1"}

// withUser はセッションゲート通過後と同じ状態のリクエストを返す。
func withUser(r *http.Request) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), testUser))
}

// decodeAPIError はレスポンスボディを統一エラーフォーマットとして読む。
func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v (raw: %s)", err, w.Body.String())
	}
	return body
}
