package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hitoshi/teamcal/internal/model"
)

// InMemoryMemberRepo はプロセス内メモリのメンバーリポジトリ。
// 再起動で内容は消える。更新・削除はサポートしない。
type InMemoryMemberRepo struct {
	mu      sync.RWMutex
	members map[int64]model.Member
	nextID  int64
}

// NewInMemoryMemberRepo はInMemoryMemberRepoを生成する。
// seedが与えられた場合は起動時のロスターとして登録し、ID未設定（0）の
// エントリには順番にIDを採番する。
func NewInMemoryMemberRepo(seed []model.Member) *InMemoryMemberRepo {
	r := &InMemoryMemberRepo{
		members: make(map[int64]model.Member),
		nextID:  1,
	}

	for _, m := range seed {
		if m.ID == 0 {
			m.ID = r.nextID
		}
		r.members[m.ID] = m
		if m.ID >= r.nextID {
			r.nextID = m.ID + 1
		}
	}

	return r
}

// List は全メンバーをID昇順で返す。
func (r *InMemoryMemberRepo) List(ctx context.Context) ([]model.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]model.Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	return members, nil
}

// FindByID は指定IDのメンバーを取得する。見つからない場合はnilを返す。
func (r *InMemoryMemberRepo) FindByID(ctx context.Context, id int64) (*model.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// Create はメンバーを作成し、単調増加のIDを採番して返す。
// 採番済みIDは削除が存在しないため再利用されない。
func (r *InMemoryMemberRepo) Create(ctx context.Context, name, email, calendarID string) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := model.Member{
		ID:         r.nextID,
		Name:       name,
		Email:      email,
		CalendarID: calendarID,
	}
	r.members[m.ID] = m
	r.nextID++

	return &m, nil
}

// compile-time interface check
var _ MemberRepository = (*InMemoryMemberRepo)(nil)
