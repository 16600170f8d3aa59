package graphqlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUpstream marks any failed call to the resolver endpoint.
var ErrUpstream = errors.New("resolver request failed")

type Request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLError is one entry of a response's "errors" list.
type GraphQLError struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

// QueryError carries the status and error list of a failed call.
type QueryError struct {
	Status int
	Errors []GraphQLError
}

func (e *QueryError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return fmt.Sprintf("graphql status=%d errors=[%s]", e.Status, strings.Join(msgs, "; "))
}

func (e *QueryError) Unwrap() error { return ErrUpstream }

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Client posts GraphQL documents to one resolver endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
	}
}

// Execute sends req with the caller's Authorization header and decodes the
// "data" member into out. A non-2xx status or a non-empty "errors" list
// yields a *QueryError.
func (c *Client) Execute(ctx context.Context, authorization string, req Request, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		httpReq.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	var decoded response
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		qe := &QueryError{Status: resp.StatusCode}
		if decodeErr == nil {
			qe.Errors = decoded.Errors
		}
		return qe
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, decodeErr)
	}
	if len(decoded.Errors) > 0 {
		return &QueryError{Status: resp.StatusCode, Errors: decoded.Errors}
	}
	if out != nil {
		if len(decoded.Data) == 0 || string(decoded.Data) == "null" {
			return fmt.Errorf("%w: response has no data", ErrUpstream)
		}
		if err := json.Unmarshal(decoded.Data, out); err != nil {
			return fmt.Errorf("%w: decode data: %v", ErrUpstream, err)
		}
	}
	return nil
}
