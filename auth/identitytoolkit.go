package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	identityToolkitBaseURL = "https://identitytoolkit.googleapis.com/v1"
	contentTypeHeader      = "Content-Type"
	googleProviderID       = "google.com"
)

// SignInResponse is the token payload returned by every Identity Toolkit sign-in call.
type SignInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
}

type restErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// IdentityClient signs users in through the Identity Toolkit REST API, the same
// endpoints the Firebase web SDK calls.
type IdentityClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewIdentityClient(apiKey string) *IdentityClient {
	return &IdentityClient{
		apiKey:     apiKey,
		baseURL:    identityToolkitBaseURL,
		httpClient: http.DefaultClient,
	}
}

func (c *IdentityClient) WithHTTPClient(hc *http.Client) *IdentityClient {
	c.httpClient = hc
	return c
}

func (c *IdentityClient) SignInWithPassword(ctx context.Context, email, password string) (*SignInResponse, error) {
	return c.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (c *IdentityClient) SignUp(ctx context.Context, email, password string) (*SignInResponse, error) {
	return c.call(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SignInWithGoogle exchanges a Google OpenID id_token for a Firebase ID token.
func (c *IdentityClient) SignInWithGoogle(ctx context.Context, googleIDToken, requestURI string) (*SignInResponse, error) {
	postBody := url.Values{
		"id_token":   {googleIDToken},
		"providerId": {googleProviderID},
	}
	return c.call(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          requestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	})
}

func (c *IdentityClient) SignInWithCustomToken(ctx context.Context, customToken string) (*SignInResponse, error) {
	return c.call(ctx, "accounts:signInWithCustomToken", map[string]any{
		"token":             customToken,
		"returnSecureToken": true,
	})
}

func (c *IdentityClient) call(ctx context.Context, method string, payload map[string]any) (*SignInResponse, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", c.baseURL, method, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set(contentTypeHeader, "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var restErr restErrorResponse
		if err := json.Unmarshal(body, &restErr); err != nil {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return nil, errorFromREST(restErr.Error.Message)
	}

	var signInResp SignInResponse
	if err := json.Unmarshal(body, &signInResp); err != nil {
		return nil, err
	}
	return &signInResp, nil
}
