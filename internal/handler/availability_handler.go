package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/hitoshi/teamcal/internal/middleware"
	"github.com/hitoshi/teamcal/internal/model"
)

// AvailabilityServiceInterface は空き状況ハンドラーが必要とするサービスインターフェース。
type AvailabilityServiceInterface interface {
	Query(ctx context.Context, session *model.Session, memberID int64, query model.AvailabilityQuery) ([]*gcal.Event, error)
}

// AvailabilityHandler はメンバーの空き状況照会のHTTPハンドラー。
type AvailabilityHandler struct {
	service AvailabilityServiceInterface

	// devFallback が真の場合、上流障害を空配列の200として返す
	// （開発環境でフロントエンドの動作を止めないため）
	devFallback bool
}

// NewAvailabilityHandler はAvailabilityHandlerを生成する。
func NewAvailabilityHandler(service AvailabilityServiceInterface, devFallback bool) *AvailabilityHandler {
	return &AvailabilityHandler{
		service:     service,
		devFallback: devFallback,
	}
}

// Get はメンバーの予定一覧を返す。
// GET /api/availability/{memberId}?timezone=...&start=...&end=...
// timezone・start・endは検証せずそのまま上流に渡す。不正な値は
// 上流のエラーとして表面化する。
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	memberID, err := strconv.ParseInt(chi.URLParam(r, "memberId"), 10, 64)
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("memberIdは数値で指定してください"))
		return
	}

	query := model.AvailabilityQuery{
		Timezone: r.URL.Query().Get("timezone"),
		Start:    r.URL.Query().Get("start"),
		End:      r.URL.Query().Get("end"),
	}

	session := middleware.SessionFromContext(r.Context())

	events, err := h.service.Query(r.Context(), session, memberID, query)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			// 開発環境では上流障害を空配列として返す
			if apiErr.Code == model.ErrCodeUpstream && h.devFallback {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode([]*gcal.Event{})
				return
			}
			middleware.WriteAPIError(w, apiErr)
			return
		}
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
