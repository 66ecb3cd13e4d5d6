package httpx

import (
	"net/http"
	"time"

	jwtpkg "github.com/KhushalAcharya29/real-estate-app/pkg/jwt"
)

// Session cookie names.
const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

// CookieConfig describes the attributes of both session cookies.
type CookieConfig struct {
	Secure     bool
	SameSite   http.SameSite
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// cookieManager sets and clears the session cookies. Both operations share one
// attribute set so browsers always match the cookie being cleared.
type cookieManager struct {
	secure     bool
	sameSite   http.SameSite
	domain     string
	path       string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newCookieManager(cfg CookieConfig) cookieManager {
	sameSite := cfg.SameSite
	if sameSite == 0 || sameSite == http.SameSiteDefaultMode {
		sameSite = http.SameSiteLaxMode
	}
	return cookieManager{
		secure:     cfg.Secure || sameSite == http.SameSiteNoneMode,
		sameSite:   sameSite,
		domain:     cfg.Domain,
		path:       "/",
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

func (c cookieManager) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.path,
		Domain:   c.domain,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	}
}

// attach sets both tokens. Max-Age mirrors the token lifetimes.
func (c cookieManager) attach(w http.ResponseWriter, pair jwtpkg.Pair) {
	access := c.cookie(accessCookieName, pair.AccessToken)
	access.MaxAge = int(c.accessTTL / time.Second)
	access.Expires = pair.AccessExpiresAt.UTC()
	http.SetCookie(w, access)

	refresh := c.cookie(refreshCookieName, pair.RefreshToken)
	refresh.MaxAge = int(c.refreshTTL / time.Second)
	refresh.Expires = pair.RefreshExpiresAt.UTC()
	http.SetCookie(w, refresh)
}

// clear expires both cookies.
func (c cookieManager) clear(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		expired := c.cookie(name, "")
		expired.MaxAge = -1
		expired.Expires = time.Unix(0, 0).UTC()
		http.SetCookie(w, expired)
	}
}

func cookieValue(req *http.Request, name string) string {
	cookie, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
