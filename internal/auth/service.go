// Package auth はOAuth認証フローとセッションライフサイクルを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/hitoshi/teamcal/internal/model"
	"github.com/hitoshi/teamcal/internal/repository"
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// LoginURL は同意画面のURLを生成する。
	LoginURL(state string) string
	// Exchange は認可コードをトークンに交換し、検証済みユーザー情報を取得する。
	Exchange(ctx context.Context, code string) (*model.SessionUser, error)
}

// Metrics は認証サービスが記録するメトリクスのインターフェース。
type Metrics interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
}

// Service は認証に関するビジネスロジックを提供する。
// セッションの状態遷移（匿名→認証済み→匿名）の唯一の書き込み主体のひとつで、
// トークンはセッションストアの外に出さない。
type Service struct {
	oauth    OAuthProvider
	sessions repository.SessionStore
	metrics  Metrics
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(oauth OAuthProvider, sessions repository.SessionStore, metrics Metrics) *Service {
	return &Service{
		oauth:    oauth,
		sessions: sessions,
		metrics:  metrics,
	}
}

// LoginURL はOAuth同意画面のURLを生成する。セッションは変更しない。
func (s *Service) LoginURL(state string) string {
	return s.oauth.LoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// トークン交換とIDトークン検証に成功した場合のみセッションを作成し、
// ストアへの保存が完了してから返す。失敗時はセッションを一切変更しない。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	user, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure("exchange_failed")
		}
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:   sessionID,
		User: user,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure("session_create_failed")
		}
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}
	slog.Info("user logged in",
		slog.String("email", user.Email),
		slog.Bool("has_refresh_token", user.Token.RefreshToken != ""),
	)

	return session, nil
}

// CurrentUser はセッションから現在のユーザーを取得する。
// 匿名（セッション未存在・期限切れ・ユーザー未設定）の場合はnilを返す。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.SessionUser, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	return session.User, nil
}

// Logout はセッションを破棄する。冪等で、セッションが存在しなくても成功する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
