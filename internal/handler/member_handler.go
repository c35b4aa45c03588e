package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/teamcal/internal/middleware"
	"github.com/hitoshi/teamcal/internal/model"
	"github.com/hitoshi/teamcal/internal/repository"
)

// MemberHandler はメンバー名簿のHTTPハンドラー。
type MemberHandler struct {
	members repository.MemberRepository
}

// NewMemberHandler はMemberHandlerを生成する。
func NewMemberHandler(members repository.MemberRepository) *MemberHandler {
	return &MemberHandler{members: members}
}

// createMemberRequest はメンバー登録リクエストのボディ。
type createMemberRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	CalendarID string `json:"calendarId"`
}

// List はメンバー一覧を返す。
// GET /api/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	members, err := h.members.List(r.Context())
	if err != nil {
		slog.Error("failed to list members", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	if members == nil {
		members = []model.Member{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(members)
}

// Create はメンバーを登録する。
// POST /api/members
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireAuth(w, r) {
		return
	}

	var req createMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := validateCreateMember(&req); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	member, err := h.members.Create(r.Context(), req.Name, req.Email, req.CalendarID)
	if err != nil {
		slog.Error("failed to create member", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(member)
}

// validateCreateMember はメンバー登録リクエストを検証する。
// name、email、calendarIdのいずれかが欠けている場合は検証エラーを返し、
// 名簿は変更しない。
func validateCreateMember(req *createMemberRequest) *model.APIError {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.CalendarID = strings.TrimSpace(req.CalendarID)

	if req.Name == "" {
		return model.NewValidationError("nameは必須です")
	}
	if req.Email == "" {
		return model.NewValidationError("emailは必須です")
	}
	if req.CalendarID == "" {
		return model.NewValidationError("calendarIdは必須です")
	}
	return nil
}

// requireAuth は認証済みセッションを要求する。
// 未認証の場合は401を書き込みfalseを返す。
func requireAuth(w http.ResponseWriter, r *http.Request) bool {
	session := middleware.SessionFromContext(r.Context())
	if session == nil || session.User == nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return false
	}
	return true
}
