package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// APIClient sends requests straight into a gin engine
type APIClient struct {
	t      *testing.T
	engine *gin.Engine
	// Token is sent as a bearer token when set
	Token string
	// RemoteAddr is the client address seen by the engine
	RemoteAddr string
}

// NewAPIClient creates a client for engine
func NewAPIClient(t *testing.T, engine *gin.Engine) *APIClient {
	return &APIClient{t: t, engine: engine, RemoteAddr: "192.0.2.10:40000"}
}

// APIResponse is a decoded response envelope
type APIResponse struct {
	Code    int
	Header  http.Header
	Raw     []byte
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Count   int             `json:"count"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
	Error *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

// Do sends a request with an optional JSON body. headers are key, value pairs.
func (c *APIClient) Do(method, path string, body any, headers ...string) *APIResponse {
	c.t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err, "Failed to marshal request body")
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = c.RemoteAddr
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)

	resp := &APIResponse{Code: w.Code, Header: w.Header(), Raw: w.Body.Bytes()}
	if len(resp.Raw) > 0 && json.Valid(resp.Raw) {
		require.NoError(c.t, json.Unmarshal(resp.Raw, resp))
	}
	return resp
}

// Expect fails the test unless the response has status code
func (r *APIResponse) Expect(t *testing.T, code int) *APIResponse {
	t.Helper()
	require.Equalf(t, code, r.Code, "expected %d %s, body: %s", code, http.StatusText(code), r.Raw)
	return r
}

// ExpectError fails the test unless the response is an error envelope with code
func (r *APIResponse) ExpectError(t *testing.T, status int, code string) *APIResponse {
	t.Helper()
	r.Expect(t, status)
	require.False(t, r.Success)
	require.NotNil(t, r.Error, "error object missing: %s", r.Raw)
	require.Equal(t, code, r.Error.Code)
	return r
}

// DataAs decodes the data field into T
func DataAs[T any](t *testing.T, r *APIResponse) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(r.Data, &out), "Failed to decode data: %s", r.Data)
	return out
}
