// Package model はドメインモデルを定義する。
package model

// User は会議室を予約するユーザーを表す。
// 起動時のシードから生成され、プロセスの生存期間中は変更されない。
type User struct {
	ID       string
	Username string
	Password string
}

// Room は予約可能な会議室を表す。
type Room struct {
	ID       string
	Name     string
	Capacity int
}
