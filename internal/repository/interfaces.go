// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/teamcal/internal/model"
)

// SessionStore はセッションデータの永続化インターフェース。
// バッキングストア（PostgreSQL / インメモリ）は設定で差し替え可能だが、
// キーとTTLの契約は同一とする。セッション単位のread/modify/saveが永続化の単位。
type SessionStore interface {
	// Create はセッションを作成する。ExpiresAtはストアがTTLから設定する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。未存在または期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// Save はセッションのユーザーデータを更新し、有効期限をスライドする。
	Save(ctx context.Context, session *model.Session) error
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
}

// MemberRepository はメンバーロスターの永続化インターフェース。
// ハンドラーから直接配列を触らせず、ストレージを差し替え可能にするための抽象。
type MemberRepository interface {
	// List は全メンバーをID昇順で返す。
	List(ctx context.Context) ([]model.Member, error)
	// FindByID は指定IDのメンバーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Member, error)
	// Create はメンバーを作成し、単調増加のIDを採番して返す。
	Create(ctx context.Context, name, email, calendarID string) (*model.Member, error)
}
