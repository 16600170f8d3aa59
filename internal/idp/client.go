package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qanda/qanda/backend/go-services/pkg/logger"
)

// ErrUpstream is returned when the token endpoint cannot be reached.
var ErrUpstream = errors.New("identity provider request failed")

const maxBodyBytes = 1 << 20

// TokenResponse is the upstream status and the decoded top-level JSON
// fields. Non-JSON bodies decode to no fields.
type TokenResponse struct {
	Status int
	Fields map[string]json.RawMessage
}

// Client exchanges grants at the IdP token endpoint. It issues exactly one
// upstream request per call and never retries.
type Client struct {
	httpClient *http.Client
	tokenURL   string
}

func NewClient(tokenURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		tokenURL:   tokenURL,
	}
}

// ExchangeToken forwards body with the caller's Authorization and
// Content-Type headers. Any upstream status is returned as-is.
func (c *Client) ExchangeToken(ctx context.Context, body []byte, authorization, contentType string) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			logger.Warnf("idp: token endpoint returned non-JSON body (status=%d, %d bytes)", resp.StatusCode, len(raw))
			fields = map[string]json.RawMessage{}
		}
	}
	return &TokenResponse{Status: resp.StatusCode, Fields: fields}, nil
}

// AliasIDToken sets access_token to the id_token value so clients can use the
// identity token as bearer token. Without an id_token the access_token key
// is removed.
func AliasIDToken(fields map[string]json.RawMessage) map[string]json.RawMessage {
	if idToken, ok := fields["id_token"]; ok {
		fields["access_token"] = idToken
	} else {
		delete(fields, "access_token")
	}
	return fields
}
