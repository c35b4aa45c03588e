// Package calendar はGoogle Calendar APIへの読み取り専用クライアントを提供する。
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hitoshi/teamcal/internal/model"
)

// maxEventsPerQuery は1回の照会で取得するイベント数の上限。
// ページネーションは行わず、この1ページのみ返す。
const maxEventsPerQuery = 100

// ErrAuthExpired はGoogleがトークンを拒否した（401またはinvalid_grant）ことを示す。
// 呼び出し側はセッションのトークンをクリアし、再認証を要求する。
var ErrAuthExpired = errors.New("google rejected the access token")

// ClientConfig はClientの設定。
type ClientConfig struct {
	// テスト用にオーバーライド可能なAPIエンドポイント
	Endpoint string
}

// Client はGoogle Calendar APIのクライアント。
// セッションに保存されたトークンをリクエスト単位でクレデンシャルとして付与する。
type Client struct {
	config ClientConfig
}

// NewClient はClientを生成する。
func NewClient(config ClientConfig) *Client {
	return &Client{config: config}
}

// ListEvents は指定カレンダーのイベントを1ページ分取得する。
// 繰り返しイベントは単一イベントに展開し、開始時刻順で返す。
// トークンはStaticTokenSourceとして付与する。リフレッシュは行わず、
// 期限切れはそのまま上流の401として表面化させる（再認証を強制するため）。
func (c *Client) ListEvents(ctx context.Context, token *model.OAuthToken, calendarID string, query model.AvailabilityQuery) ([]*gcal.Event, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		Expiry:      token.Expiry,
	})

	opts := []option.ClientOption{option.WithTokenSource(src)}
	if c.config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.config.Endpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	events, err := svc.Events.List(calendarID).
		TimeMin(query.Start).
		TimeMax(query.End).
		TimeZone(query.Timezone).
		MaxResults(maxEventsPerQuery).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError(err)
	}

	if events.Items == nil {
		return []*gcal.Event{}, nil
	}
	return events.Items, nil
}

// classifyError は上流エラーを分類する。
// 401またはinvalid_grantはErrAuthExpiredとして返し、それ以外はそのまま返す。
func classifyError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return fmt.Errorf("calendar query unauthorized: %w", ErrAuthExpired)
	}
	if strings.Contains(err.Error(), "invalid_grant") {
		return fmt.Errorf("calendar query rejected: %w", ErrAuthExpired)
	}
	return fmt.Errorf("calendar query failed: %w", err)
}
