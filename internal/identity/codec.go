package identity

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken はトークンの構造が不正な場合に返される。
var ErrMalformedToken = errors.New("malformed token")

// TokenCodec はユーザーIDと発行時刻をベアラートークンへ符号化・復号する。
// Storeはこのインターフェース越しにトークンを扱うため、方式を差し替えても
// セッションゲートや予約エンジンの契約は変わらない。
type TokenCodec interface {
	// Encode はユーザーIDと発行時刻からトークン文字列を生成する。
	Encode(userID string, issuedAt time.Time) (string, error)
	// Decode はトークン文字列からユーザーIDと発行時刻を取り出す。
	Decode(token string) (userID string, issuedAt time.Time, err error)
}

// Base64Codec は "<userID>:<UNIXミリ秒>" をbase64化するだけの可逆トークン方式。
// 署名を持たないため、既知のユーザーIDを符号化した任意の文字列が受理される。
// 既存クライアントとの互換のために残している既知の弱点であり、本番では JWTCodec を使う。
type Base64Codec struct{}

var _ TokenCodec = Base64Codec{}

// Encode はTokenCodecを実装する。
func (Base64Codec) Encode(userID string, issuedAt time.Time) (string, error) {
	raw := userID + ":" + strconv.FormatInt(issuedAt.UnixMilli(), 10)
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

// Decode はTokenCodecを実装する。
func (Base64Codec) Decode(token string) (string, time.Time, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		// パディングなしで発行されたトークンも受け付ける
		decoded, err = base64.RawStdEncoding.DecodeString(token)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("%w: not base64", ErrMalformedToken)
		}
	}

	userID, millis, ok := strings.Cut(string(decoded), ":")
	if !ok || userID == "" || strings.Contains(millis, ":") {
		return "", time.Time{}, fmt.Errorf("%w: unexpected structure", ErrMalformedToken)
	}

	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: invalid timestamp", ErrMalformedToken)
	}

	return userID, time.UnixMilli(ms), nil
}

// JWTCodec はHS256で署名したJWTを使うトークン方式。
// 有効期限は設定しない（base64方式と同じくプロセス再起動まで有効）。
type JWTCodec struct {
	secret []byte
}

var _ TokenCodec = (*JWTCodec)(nil)

// NewJWTCodec はJWTCodecを生成する。
func NewJWTCodec(secret string) *JWTCodec {
	return &JWTCodec{secret: []byte(secret)}
}

// Encode はTokenCodecを実装する。
func (c *JWTCodec) Encode(userID string, issuedAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(issuedAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode はTokenCodecを実装する。署名が一致しないトークンは拒否する。
func (c *JWTCodec) Decode(token string) (string, time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return "", time.Time{}, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	return claims.Subject, issuedAt, nil
}
