// Package identity はユーザーの資格情報確認とベアラートークンの発行・解決を提供する。
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/roomsched/internal/model"
)

// LoginRecorder はログイン試行の結果を記録するメトリクスのインターフェース。
type LoginRecorder interface {
	RecordLoginAttempt(success bool)
}

// Store は登録済みユーザーを保持し、資格情報の確認とトークンの発行・解決を行う。
// ユーザー集合は生成時に確定し、以後変更されないためロックを必要としない。
type Store struct {
	users   []model.User
	byID    map[string]int
	codec   TokenCodec
	metrics LoginRecorder
	now     func() time.Time
}

// NewStore はStoreを生成する。
// codecがnilの場合はBase64Codecを使用する。
func NewStore(users []model.User, codec TokenCodec) *Store {
	if codec == nil {
		codec = Base64Codec{}
	}
	s := &Store{
		users: make([]model.User, len(users)),
		byID:  make(map[string]int, len(users)),
		codec: codec,
		now:   time.Now,
	}
	copy(s.users, users)
	for i, u := range s.users {
		s.byID[u.ID] = i
	}
	return s
}

// SetLoginRecorder はログイン試行を記録するメトリクスを設定する。
func (s *Store) SetLoginRecorder(r LoginRecorder) {
	s.metrics = r
}

// SeedUsers は起動時に登録されるユーザー一覧を返す。
// IDは呼び出しごとに新しいUUIDが割り当てられる。
func SeedUsers() []model.User {
	return []model.User{
		{ID: uuid.New().String(), Username: "funcionario1", Password: "password1"},
		{ID: uuid.New().String(), Username: "julio.lima", Password: "123456"},
	}
}

// ValidateCredentials はユーザー名とパスワードの両方が一致するユーザーを返す。
// 一致するユーザーがいない場合はINVALID_CREDENTIALSエラーを返す。
// パスワードは平文のまま比較する（定数時間比較もしない）。
func (s *Store) ValidateCredentials(username, password string) (*model.User, error) {
	for i := range s.users {
		if s.users[i].Username == username && s.users[i].Password == password {
			u := s.users[i]
			return &u, nil
		}
	}
	return nil, model.NewInvalidCredentialsError()
}

// IssueToken はユーザーIDと現在時刻を符号化したトークンを発行する。
// 発行時刻は将来の有効期限チェック用に含めているが、現状は検証しない。
func (s *Store) IssueToken(user *model.User) (string, error) {
	if user == nil {
		return "", errors.New("user is nil")
	}
	token, err := s.codec.Encode(user.ID, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

// ResolveToken はトークンを復号し、対応するユーザーを返す。
// 構造が不正な場合や未知のユーザーIDの場合はUNAUTHENTICATEDエラーを返す。
func (s *Store) ResolveToken(token string) (*model.User, error) {
	userID, _, err := s.codec.Decode(token)
	if err != nil {
		return nil, model.NewUnauthenticatedError("トークンが不正です")
	}

	i, ok := s.byID[userID]
	if !ok {
		return nil, model.NewUnauthenticatedError("トークンが不正です")
	}
	u := s.users[i]
	return &u, nil
}

// Login は資格情報を確認し、成功した場合にトークンを発行する。
func (s *Store) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.ValidateCredentials(username, password)
	if err != nil {
		s.recordLogin(false)
		slog.WarnContext(ctx, "login failed",
			slog.String("username", username),
		)
		return "", err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		s.recordLogin(false)
		return "", err
	}

	s.recordLogin(true)
	slog.InfoContext(ctx, "login succeeded",
		slog.String("user_id", user.ID),
	)
	return token, nil
}

func (s *Store) recordLogin(success bool) {
	if s.metrics != nil {
		s.metrics.RecordLoginAttempt(success)
	}
}
