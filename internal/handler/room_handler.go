package handler

import (
	"net/http"

	"github.com/hitoshi/roomsched/internal/model"
)

// RoomServiceInterface は会議室ハンドラーが必要とするサービスインターフェース。
type RoomServiceInterface interface {
	ListRooms() []model.Room
}

// RoomHandler は会議室一覧のHTTPハンドラー。
type RoomHandler struct {
	service RoomServiceInterface
}

// NewRoomHandler はRoomHandlerを生成する。
func NewRoomHandler(service RoomServiceInterface) *RoomHandler {
	return &RoomHandler{service: service}
}

type roomResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// ListRooms は登録順の会議室一覧を返す。
// GET /rooms
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.service.ListRooms()
	resp := make([]roomResponse, len(rooms))
	for i, room := range rooms {
		resp[i] = roomResponse{ID: room.ID, Name: room.Name, Capacity: room.Capacity}
	}
	writeJSON(w, http.StatusOK, resp)
}
