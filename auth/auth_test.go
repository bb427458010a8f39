package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	idTokens map[string]*fbauth.Token
	cookies  map[string]*fbauth.Token
}

func (f *fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*fbauth.Token, error) {
	if token, ok := f.idTokens[idToken]; ok {
		return token, nil
	}
	return nil, errors.New("ID token has invalid signature")
}

func (f *fakeVerifier) VerifySessionCookie(_ context.Context, cookie string) (*fbauth.Token, error) {
	if token, ok := f.cookies[cookie]; ok {
		return token, nil
	}
	return nil, errors.New("session cookie has expired")
}

func (f *fakeVerifier) SessionCookie(_ context.Context, idToken string, _ time.Duration) (string, error) {
	return "cookie-for-" + idToken, nil
}

func newFakeVerifier() *fakeVerifier {
	jane := &fbauth.Token{
		UID: "uid-jane",
		Claims: map[string]any{
			"email":   "jane@example.com",
			"name":    "Jane Doe",
			"picture": "https://lh3.googleusercontent.com/a/jane",
		},
	}
	return &fakeVerifier{
		idTokens: map[string]*fbauth.Token{"good-token": jane},
		cookies:  map[string]*fbauth.Token{"good-cookie": jane},
	}
}

func TestIdentityFromToken(t *testing.T) {
	identity := IdentityFromToken(&fbauth.Token{UID: "u1", Claims: map[string]any{"email": "a@b.c", "name": 7}})

	assert.Equal(t, Identity{UID: "u1", Email: "a@b.c"}, identity)
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		cookie      string
		expectedUID string
		wantErr     bool
	}{
		{name: "bearer token", header: "Bearer good-token", expectedUID: "uid-jane"},
		{name: "session cookie", cookie: "good-cookie", expectedUID: "uid-jane"},
		{name: "bearer wins over cookie", header: "Bearer bad-token", cookie: "good-cookie", wantErr: true},
		{name: "malformed header", header: "Basic abc", wantErr: true},
		{name: "expired cookie", cookie: "stale", wantErr: true},
		{name: "no credentials", wantErr: true},
	}

	verifier := newFakeVerifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/profile", nil)
			if tt.header != "" {
				req.Header.Set(authorizationHeader, tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}

			identity, err := Authenticate(req, verifier)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedUID, identity.UID)
			assert.Equal(t, "Jane Doe", identity.DisplayName)
		})
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(newFakeVerifier()))
	router.GET("/whoami", func(c *gin.Context) {
		identity, ok := FromGin(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		fromCtx, _ := FromContext(c.Request.Context())
		c.String(http.StatusOK, identity.UID+"|"+fromCtx.Email)
	})
	router.GET("/private", RequireIdentity(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name         string
		path         string
		header       string
		expectedCode int
		expectedBody string
	}{
		{"anonymous page", "/whoami", "", http.StatusOK, "anonymous"},
		{"invalid token is anonymous", "/whoami", "Bearer nope", http.StatusOK, "anonymous"},
		{"signed in", "/whoami", "Bearer good-token", http.StatusOK, "uid-jane|jane@example.com"},
		{"private without identity", "/private", "", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"private with identity", "/private", "Bearer good-token", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(authorizationHeader, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.expectedBody, w.Body.String())
		})
	}
}
