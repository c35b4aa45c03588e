package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/teamcal/internal/model"
)

// MemorySessionStore はプロセス内メモリのセッションストア。
// DATABASE_URL未設定の開発用デプロイで使用する。再起動でセッションは消える。
// バックグラウンドのジャニターが期限切れエントリを定期的に除去する。
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	ttl      time.Duration

	janitorTicker *time.Ticker
	janitorDone   chan struct{}
}

// NewMemorySessionStore はMemorySessionStoreを生成し、ジャニターを起動する。
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	s := &MemorySessionStore{
		sessions:      make(map[string]*model.Session),
		ttl:           ttl,
		janitorTicker: time.NewTicker(10 * time.Minute),
		janitorDone:   make(chan struct{}),
	}

	go s.janitor()

	return s
}

// Create はセッションを作成する。
func (s *MemorySessionStore) Create(ctx context.Context, session *model.Session) error {
	now := time.Now()
	session.CreatedAt = now
	session.ExpiresAt = now.Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = copySession(session)
	return nil
}

// FindByID は指定IDのセッションを取得する。未存在または期限切れの場合はnilを返す。
func (s *MemorySessionStore) FindByID(ctx context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, nil
	}
	return copySession(session), nil
}

// Save はセッションのユーザーデータを更新し、有効期限をスライドする。
func (s *MemorySessionStore) Save(ctx context.Context, session *model.Session) error {
	session.ExpiresAt = time.Now().Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = copySession(session)
	return nil
}

// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
func (s *MemorySessionStore) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len は現在保持しているセッション数を返す。テストおよびメトリクス用。
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stop はジャニターのバックグラウンドゴルーチンを停止する。
func (s *MemorySessionStore) Stop() {
	s.janitorTicker.Stop()
	close(s.janitorDone)
}

// janitor は期限切れセッションを定期的に除去する。
func (s *MemorySessionStore) janitor() {
	for {
		select {
		case <-s.janitorTicker.C:
			now := time.Now()
			s.mu.Lock()
			for id, session := range s.sessions {
				if now.After(session.ExpiresAt) {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		case <-s.janitorDone:
			return
		}
	}
}

// copySession はセッションのディープコピーを返す。
// ストアの中身と呼び出し側の参照を分離し、read/modify/saveを永続化の単位にする。
func copySession(src *model.Session) *model.Session {
	dst := &model.Session{
		ID:        src.ID,
		ExpiresAt: src.ExpiresAt,
		CreatedAt: src.CreatedAt,
	}
	if src.User != nil {
		user := *src.User
		if src.User.Token != nil {
			token := *src.User.Token
			user.Token = &token
		}
		dst.User = &user
	}
	return dst
}

// compile-time interface check
var _ SessionStore = (*MemorySessionStore)(nil)
