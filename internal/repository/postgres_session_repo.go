package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/teamcal/internal/model"
)

// PostgresSessionStore はPostgreSQLを使用したセッションストア。
// ユーザーデータ（メールアドレス、表示名、トークン）はJSONBのdataカラムに格納する。
type PostgresSessionStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresSessionStore はPostgresSessionStoreを生成する。
// ttlはセッションの有効期間。Saveのたびに期限はスライドする。
func NewPostgresSessionStore(db *sql.DB, ttl time.Duration) *PostgresSessionStore {
	return &PostgresSessionStore{db: db, ttl: ttl}
}

// sessionData はdataカラムに格納するJSONペイロード。
type sessionData struct {
	User *model.SessionUser `json:"user,omitempty"`
}

// Create はセッションを作成する。
func (s *PostgresSessionStore) Create(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(sessionData{User: session.User})
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	now := time.Now()
	session.CreatedAt = now
	session.ExpiresAt = now.Add(s.ttl)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, data, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		session.ID, data, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。未存在または期限切れの場合はnilを返す。
func (s *PostgresSessionStore) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, data, expires_at, created_at
		 FROM sessions
		 WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&session.ID, &raw, &session.ExpiresAt, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	var data sessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	session.User = data.User

	return session, nil
}

// Save はセッションのユーザーデータを更新し、有効期限をスライドする。
func (s *PostgresSessionStore) Save(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(sessionData{User: session.User})
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	session.ExpiresAt = time.Now().Add(s.ttl)

	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET data = $2, expires_at = $3 WHERE id = $1`,
		session.ID, data, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
func (s *PostgresSessionStore) DeleteByID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionStore = (*PostgresSessionStore)(nil)
