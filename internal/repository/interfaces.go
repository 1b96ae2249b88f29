// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/roomsched/internal/model"
)

// Executor はSQL実行に必要な*sql.DBの部分集合。
// テストではモックに差し替える。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AppointmentEventRepository は予約イベント（監査ログ）の永続化インターフェース。
// 書き込み専用で、予約エンジンの状態復元には使わない。
type AppointmentEventRepository interface {
	// Insert は予約イベントを1件記録する。同じIDのイベントは重複して記録しない。
	Insert(ctx context.Context, event model.AppointmentEvent) error
}
