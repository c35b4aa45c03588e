package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/hitoshi/teamcal/internal/model"
)

// userinfoEmailScope はIDトークンにメールアドレスを含めるためのスコープ。
const userinfoEmailScope = "https://www.googleapis.com/auth/userinfo.email"

// IDTokenValidator はIDトークンのaudience検証を行う関数。
// 本番ではidtoken.Validateを使い、テストではスタブに差し替える。
type IDTokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能
	Endpoint  oauth2.Endpoint
	Validator IDTokenValidator
}

// GoogleOAuthProvider はGoogle OAuth 2.0による認証を提供する。
// カレンダー読み取りとメールアドレスのスコープで、リフレッシュトークンが
// 毎回発行されるようオフラインアクセス＋再同意を要求する。
type GoogleOAuthProvider struct {
	conf     *oauth2.Config
	validate IDTokenValidator
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	endpoint := config.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	validate := config.Validator
	if validate == nil {
		validate = idtoken.Validate
	}

	return &GoogleOAuthProvider{
		conf: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     endpoint,
			Scopes: []string{
				calendar.CalendarReadonlyScope,
				userinfoEmailScope,
			},
		},
		validate: validate,
	}
}

// LoginURL はGoogle OAuthの同意画面URLを生成する。
// access_type=offlineとprompt=consentを指定し、再ログイン時にも
// リフレッシュトークンが発行されるようにする。
func (p *GoogleOAuthProvider) LoginURL(state string) string {
	return p.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange は認可コードをトークンに交換し、同時に発行されたIDトークンの
// audienceを設定済みクライアントIDに対して検証してユーザー情報を取り出す。
// 成功した場合のみSessionUser（メールアドレス・表示名・トークン一式）を返す。
func (p *GoogleOAuthProvider) Exchange(ctx context.Context, code string) (*model.SessionUser, error) {
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("no id_token in token response")
	}

	payload, err := p.validate(ctx, rawIDToken, p.conf.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("no email claim in id token")
	}
	name, _ := payload.Claims["name"].(string)
	if name == "" {
		name = email
	}

	return &model.SessionUser{
		Email: email,
		Name:  name,
		Token: &model.OAuthToken{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			Expiry:       token.Expiry,
		},
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
