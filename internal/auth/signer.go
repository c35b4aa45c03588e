package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// CookieSigner はセッションCookie値のHMAC-SHA256署名を行う。
// ストアのキーであるセッションIDをそのままCookieに載せず、
// 改ざん・総当たりされた値をストア参照前に弾く。
type CookieSigner struct {
	secret []byte
}

// NewCookieSigner はCookieSignerを生成する。secretにはSESSION_SECRETを渡す。
func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{secret: []byte(secret)}
}

// Sign はセッションIDに署名を付与したCookie値を返す。
// 形式は "<sessionID>.<base64url(HMAC)>"。セッションIDはhexのため区切りの
// ドットと衝突しない。
func (s *CookieSigner) Sign(sessionID string) string {
	return sessionID + "." + s.signature(sessionID)
}

// Verify はCookie値の署名を検証し、元のセッションIDを返す。
// 署名が一致しない、または形式が不正な場合はfalseを返す。
func (s *CookieSigner) Verify(value string) (string, bool) {
	i := strings.LastIndex(value, ".")
	if i <= 0 || i == len(value)-1 {
		return "", false
	}

	sessionID, sig := value[:i], value[i+1:]
	expected := s.signature(sessionID)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", false
	}

	return sessionID, true
}

func (s *CookieSigner) signature(sessionID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
