// Package room は予約可能な会議室のカタログを提供する。
package room

import (
	"github.com/google/uuid"
	"github.com/hitoshi/roomsched/internal/model"
)

// Catalog は起動時に確定する会議室の一覧を保持する。
// 生成後は読み取り専用のため、並行アクセスにロックを必要としない。
type Catalog struct {
	rooms []model.Room
	byID  map[string]int
}

// NewCatalog はCatalogを生成する。roomsの順序が一覧の順序になる。
// IDが重複する場合は先に現れた会議室を優先する。
func NewCatalog(rooms []model.Room) *Catalog {
	c := &Catalog{
		rooms: make([]model.Room, 0, len(rooms)),
		byID:  make(map[string]int, len(rooms)),
	}
	for _, r := range rooms {
		if _, dup := c.byID[r.ID]; dup {
			continue
		}
		c.byID[r.ID] = len(c.rooms)
		c.rooms = append(c.rooms, r)
	}
	return c
}

// SeedRooms は起動時に登録される会議室一覧を返す。
func SeedRooms() []model.Room {
	return []model.Room{
		{ID: uuid.New().String(), Name: "Sala Alpha", Capacity: 10},
		{ID: uuid.New().String(), Name: "Sala Beta", Capacity: 8},
		{ID: uuid.New().String(), Name: "Sala Gamma", Capacity: 12},
	}
}

// ListRooms は登録順の会議室一覧のコピーを返す。
func (c *Catalog) ListRooms() []model.Room {
	out := make([]model.Room, len(c.rooms))
	copy(out, c.rooms)
	return out
}

// Exists は指定IDの会議室が存在するかを返す。
func (c *Catalog) Exists(roomID string) bool {
	_, ok := c.byID[roomID]
	return ok
}

// Get は指定IDの会議室を返す。存在しない場合はROOM_NOT_FOUNDエラーを返す。
func (c *Catalog) Get(roomID string) (*model.Room, error) {
	i, ok := c.byID[roomID]
	if !ok {
		return nil, model.NewRoomNotFoundError(roomID)
	}
	r := c.rooms[i]
	return &r, nil
}
