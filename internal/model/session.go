// Package model はドメインモデルを定義する。
package model

import "time"

// OAuthToken はGoogleから発行されたOAuthクレデンシャルを表す。
// セッションストアの外には永続化せず、クライアントにも返さない。
// RefreshTokenは再同意フローでのみ発行されるため空の場合がある。
type OAuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// SessionUser は認証済みユーザーのセッション内表現を表す。
// Tokenがnilの場合はトークン無効化後の再認証待ち状態。
type SessionUser struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Token *OAuthToken `json:"token,omitempty"`
}

// Session はブラウザ1つに対応するサーバーサイドセッションを表す。
// Userがnilの間は匿名セッションとして扱う。
type Session struct {
	ID        string       `json:"-"`
	User      *SessionUser `json:"user,omitempty"`
	ExpiresAt time.Time    `json:"-"`
	CreatedAt time.Time    `json:"-"`
}

// IsAuthenticated はセッションが認証済みかどうかを返す。
// ユーザー情報とトークンの両方が揃っている場合のみ認証済みとみなす。
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.User != nil && s.User.Token != nil
}
