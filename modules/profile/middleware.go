package profile

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/accountkit/accountkit/pkg/scopes"
	"github.com/accountkit/accountkit/pkg/token"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "accountkit_session"

// AccessTokenPayload is the signed payload of both session cookies and
// bearer tokens.
type AccessTokenPayload struct {
	SubjectID string `json:"sub"`
	Scope     string `json:"scope"`
	ExpiresAt int64  `json:"exp"`
}

// IssueAccessToken mints a signed token for a subject. Used by the
// out-of-scope sign-in flow and by tests.
func IssueAccessToken(subjectID uuid.UUID, granted []string, ttl time.Duration, secret string) (string, error) {
	return token.Generate(AccessTokenPayload{
		SubjectID: subjectID.String(),
		Scope:     scopes.Join(granted),
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}, secret)
}

// Authenticator resolves the request subject from a bearer token or the
// session cookie and stores the AuthContext. Requests without a valid token
// proceed unauthenticated; rejecting them is the service's job, so every
// operation returns the same error for "no token" and "bad token".
func Authenticator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				if cookie, err := r.Cookie(SessionCookieName); err == nil {
					raw = cookie.Value
				}
			}

			if raw != "" {
				if auth, ok := parseAccessToken(raw, secret); ok {
					r = r.WithContext(WithAuth(r.Context(), auth))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func parseAccessToken(raw, secret string) (AuthContext, bool) {
	payload, err := token.Parse[AccessTokenPayload](raw, secret)
	if err != nil {
		return AuthContext{}, false
	}
	if time.Now().Unix() > payload.ExpiresAt {
		return AuthContext{}, false
	}

	subjectID, err := uuid.Parse(payload.SubjectID)
	if err != nil || subjectID == uuid.Nil {
		return AuthContext{}, false
	}

	return AuthContext{
		SubjectID: subjectID,
		Scopes:    scopes.Parse(payload.Scope),
	}, true
}
