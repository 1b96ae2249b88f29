// Command roomsched は会議室予約APIサーバーとその補助サブコマンドを提供する。
//
// 使い方:
//
//	roomsched [serve|worker|migrate|healthcheck]
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/roomsched/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("roomsched exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
