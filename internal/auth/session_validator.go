package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultSessionIssuer is the iss claim TAuth stamps on cashgame sessions.
const defaultSessionIssuer = "tauth"

// Errors returned while authenticating a cashgame request. Handlers map every one of
// them to 401 except the configuration errors, which only surface at startup.
var (
	ErrMissingSessionSigningKey = errors.New("auth: cashgame session signing secret is empty")
	ErrMissingSessionCookieName = errors.New("auth: cashgame session cookie name is empty")
	ErrMissingSessionToken      = errors.New("auth: no session cookie or bearer token on request")
	ErrInvalidSessionToken      = errors.New("auth: session token rejected")
	ErrExpiredSessionToken      = errors.New("auth: session token expired")
	ErrMissingSessionSubject    = errors.New("auth: session token names no user")
)

// SessionClaims is the TAuth token payload. UserID and Subject identify the host or
// co-host; the profile fields seed the cashgame user record on first sight.
type SessionClaims struct {
	UserID          string   `json:"user_id"`
	UserEmail       string   `json:"user_email"`
	UserDisplayName string   `json:"user_display_name"`
	UserAvatarURL   string   `json:"user_avatar_url"`
	UserRoles       []string `json:"user_roles"`
	jwt.RegisteredClaims
}

// SessionValidatorConfig configures NewSessionValidator. Issuer defaults to "tauth".
type SessionValidatorConfig struct {
	SigningSecret []byte
	Issuer        string
	CookieName    string
	Clock         func() time.Time
}

// SessionValidator authenticates API calls against TAuth-issued HS256 tokens, read from
// the session cookie or an Authorization bearer header.
type SessionValidator struct {
	secret     []byte
	cookieName string
	parser     *jwt.Parser
}

func NewSessionValidator(cfg SessionValidatorConfig) (*SessionValidator, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSessionSigningKey
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		return nil, ErrMissingSessionCookieName
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultSessionIssuer
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &SessionValidator{
		secret:     append([]byte(nil), cfg.SigningSecret...),
		cookieName: cookieName,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clock),
		),
	}, nil
}

// CookieName is the cookie the browser client carries its session in.
func (v *SessionValidator) CookieName() string {
	return v.cookieName
}

// ValidateToken checks signature, issuer and expiry, and requires the token to name a user.
func (v *SessionValidator) ValidateToken(raw string) (SessionClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SessionClaims{}, ErrMissingSessionToken
	}

	var claims SessionClaims
	if _, err := v.parser.ParseWithClaims(raw, &claims, v.signingKey); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return SessionClaims{}, ErrExpiredSessionToken
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return SessionClaims{}, ErrInvalidSessionToken
		default:
			return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
		}
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.UserID) == "" {
		return SessionClaims{}, ErrMissingSessionSubject
	}
	return claims, nil
}

func (v *SessionValidator) signingKey(*jwt.Token) (interface{}, error) {
	return v.secret, nil
}

// ValidateRequest authenticates r. The cookie wins over the Authorization header so
// the browser client and scripted clients share one endpoint set.
func (v *SessionValidator) ValidateRequest(r *http.Request) (SessionClaims, error) {
	token := v.tokenFromRequest(r)
	if token == "" {
		return SessionClaims{}, ErrMissingSessionToken
	}
	return v.ValidateToken(token)
}

func (v *SessionValidator) tokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if cookie, err := r.Cookie(v.cookieName); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
