// Package availability はメンバーの空き状況照会のユースケースを提供する。
package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/hitoshi/teamcal/internal/calendar"
	"github.com/hitoshi/teamcal/internal/model"
	"github.com/hitoshi/teamcal/internal/repository"
)

// CalendarClient はカレンダー照会の依存を抽象化する。
type CalendarClient interface {
	ListEvents(ctx context.Context, token *model.OAuthToken, calendarID string, query model.AvailabilityQuery) ([]*gcal.Event, error)
}

// Metrics は空き状況照会のメトリクス記録を抽象化する。
type Metrics interface {
	RecordCalendarQuery(result string)
	RecordTokenCleared()
}

// Service は空き状況照会サービス。
// セッションの認証状態とトークンの有無を検証した上で、
// メンバーのカレンダーをユーザー自身のトークンで照会する。
type Service struct {
	sessions repository.SessionStore
	members  repository.MemberRepository
	client   CalendarClient
	metrics  Metrics
	timeout  time.Duration
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(sessions repository.SessionStore, members repository.MemberRepository, client CalendarClient, metrics Metrics, timeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		sessions: sessions,
		members:  members,
		client:   client,
		metrics:  metrics,
		timeout:  timeout,
		logger:   logger,
	}
}

// Query はセッションに紐づくトークンでメンバーの予定を照会する。
// 検証は認証→トークン→メンバー存在の順で行い、最初に失敗した段階の
// エラーを返す。上流がトークンを拒否した場合はセッションの認証情報を
// クリアしてから期限切れエラーを返す。
func (s *Service) Query(ctx context.Context, session *model.Session, memberID int64, query model.AvailabilityQuery) ([]*gcal.Event, error) {
	if session == nil || session.User == nil {
		s.metrics.RecordCalendarQuery("unauthorized")
		return nil, model.NewUnauthorizedError()
	}
	if session.User.Token == nil {
		s.metrics.RecordCalendarQuery("token_missing")
		return nil, model.NewTokenMissingError()
	}

	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		s.metrics.RecordCalendarQuery("error")
		return nil, model.NewInternalError()
	}
	if member == nil {
		s.metrics.RecordCalendarQuery("member_not_found")
		return nil, model.NewMemberNotFoundError(memberID)
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	events, err := s.client.ListEvents(queryCtx, session.User.Token, member.CalendarID, query)
	if err != nil {
		if errors.Is(err, calendar.ErrAuthExpired) {
			s.clearCredentials(ctx, session)
			s.metrics.RecordCalendarQuery("token_expired")
			return nil, model.NewTokenExpiredError()
		}
		s.logger.Error("calendar query failed",
			slog.Int64("member_id", memberID),
			slog.String("error", err.Error()))
		s.metrics.RecordCalendarQuery("upstream_failure")
		return nil, model.NewUpstreamError()
	}

	s.metrics.RecordCalendarQuery("success")
	return events, nil
}

// clearCredentials はセッションから認証情報を取り除いて永続化する。
// 保存に失敗してもエラー応答は期限切れのまま返すため、ログのみ残す。
func (s *Service) clearCredentials(ctx context.Context, session *model.Session) {
	session.User = nil
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("failed to clear session credentials",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()))
	}
	s.metrics.RecordTokenCleared()
}
