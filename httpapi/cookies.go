package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/authcore/middleware"
)

const (
	// RefreshCookieName is the cookie that carries the refresh token.
	RefreshCookieName = "refreshToken"

	accessCookiePath  = "/"
	refreshCookiePath = "/api/auth"
)

// CookieConfig controls the attributes of session cookies.
type CookieConfig struct {
	// Secure should be false only for local plain-HTTP development.
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

func (c CookieConfig) sameSite() http.SameSite {
	if c.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return c.SameSite
}

func (c CookieConfig) cookie(name, value, path string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	}
}

func (c CookieConfig) setAccess(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(middleware.AccessCookieName, token, accessCookiePath, ttl))
}

func (c CookieConfig) setRefresh(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(RefreshCookieName, token, refreshCookiePath, ttl))
}

// clear expires both session cookies. MaxAge -1 sends Max-Age=0.
func (c CookieConfig) clear(w http.ResponseWriter) {
	access := c.cookie(middleware.AccessCookieName, "", accessCookiePath, 0)
	access.MaxAge = -1
	http.SetCookie(w, access)

	refresh := c.cookie(RefreshCookieName, "", refreshCookiePath, 0)
	refresh.MaxAge = -1
	http.SetCookie(w, refresh)
}
