package newsletter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, apiKey, audienceID, prefix string, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(apiKey, audienceID, prefix)
	c.baseURL = srv.URL
	c.httpClient = srv.Client()
	return c, &hits
}

func TestSubscribeNotConfigured(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		audienceID string
		prefix     string
	}{
		{"nothing set", "", "", ""},
		{"missing key", "", "aud", "us21"},
		{"missing audience", "key-us21", "", "us21"},
		{"missing prefix", "key-us21", "aud", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, hits := newTestClient(t, tt.apiKey, tt.audienceID, tt.prefix, func(w http.ResponseWriter, r *http.Request) {})

			res, err := c.Subscribe(context.Background(), "reader@example.com")
			require.NoError(t, err)

			assert.False(t, c.Configured())
			assert.False(t, res.Forwarded)
			assert.Equal(t, NotConfiguredMessage, res.Message)
			assert.Equal(t, int32(0), atomic.LoadInt32(hits))
		})
	}
}

func TestSubscribeRequest(t *testing.T) {
	var got memberRequest
	c, hits := newTestClient(t, "key-us21", "aud123", "us21", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/3.0/lists/aud123/members", r.URL.Path)
		assert.Equal(t, "apikey key-us21", r.Header.Get(authorizationHeader))
		assert.Equal(t, "application/json", r.Header.Get(contentTypeHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"abc","status":"subscribed"}`))
	})

	res, err := c.Subscribe(context.Background(), "reader@example.com")
	require.NoError(t, err)

	assert.True(t, res.Forwarded)
	assert.Equal(t, memberRequest{EmailAddress: "reader@example.com", Status: "subscribed"}, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestSubscribeAPIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected map[string]any
	}{
		{
			name:     "json details",
			status:   http.StatusBadRequest,
			body:     `{"title":"Member Exists","status":400}`,
			expected: map[string]any{"title": "Member Exists", "status": float64(400)},
		},
		{
			name:     "non json body",
			status:   http.StatusBadGateway,
			body:     "<html>bad gateway</html>",
			expected: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, "key-us21", "aud123", "us21", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Subscribe(context.Background(), "reader@example.com")

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.expected, apiErr.Details)
		})
	}
}

func TestMembersURL(t *testing.T) {
	c := NewClient("key", "aud123", "us21")
	assert.Equal(t, "https://us21.api.mailchimp.com/3.0/lists/aud123/members", c.membersURL())
}
