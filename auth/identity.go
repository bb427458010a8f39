package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
)

// SessionCookieName is the only cookie Firebase Hosting forwards to functions.
const SessionCookieName = "__session"

var errNoCredentials = errors.New("no ID token or session cookie")

// Identity is the signed-in user as asserted by Firebase Auth.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// TokenVerifier is the subset of the Firebase Auth client the site depends on.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*fbauth.Token, error)
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
}

// IdentityFromToken reads the standard Firebase ID token claims.
func IdentityFromToken(token *fbauth.Token) Identity {
	claim := func(key string) string {
		v, _ := token.Claims[key].(string)
		return v
	}
	return Identity{
		UID:         token.UID,
		Email:       claim("email"),
		DisplayName: claim("name"),
		PhotoURL:    claim("picture"),
	}
}

// Authenticate verifies the bearer ID token, falling back to the session cookie.
func Authenticate(r *http.Request, verifier TokenVerifier) (Identity, error) {
	ctx := r.Context()

	if jwtToken, err := BearerTokenFromRequest(r); err == nil {
		token, err := verifier.VerifyIDToken(ctx, jwtToken)
		if err != nil {
			return Identity{}, err
		}
		return IdentityFromToken(token), nil
	} else if !errors.Is(err, errMissingAuthorizationHeader) {
		return Identity{}, err
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, errNoCredentials
	}
	token, err := verifier.VerifySessionCookie(ctx, cookie.Value)
	if err != nil {
		return Identity{}, err
	}
	return IdentityFromToken(token), nil
}
