package idp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeTokenForwardsRequest(t *testing.T) {
	var gotBody, gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id_token":"idt","access_token":"at","expires_in":3600}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/oauth2/token", time.Second)
	resp, err := c.ExchangeToken(context.Background(), []byte("grant_type=authorization_code&code=abc"), "Basic Y2xpZW50OnNlY3JldA==", "application/x-www-form-urlencoded")
	require.NoError(t, err)

	assert.Equal(t, "grant_type=authorization_code&code=abc", gotBody)
	assert.Equal(t, "Basic Y2xpZW50OnNlY3JldA==", gotAuth)
	assert.Equal(t, "application/x-www-form-urlencoded", gotType)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `3600`, string(resp.Fields["expires_in"]))
}

func TestExchangeTokenOmitsEmptyHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth := r.Header["Authorization"]
		assert.False(t, hasAuth)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, time.Second).ExchangeToken(context.Background(), nil, "", "")
	require.NoError(t, err)
	assert.Empty(t, resp.Fields)
}

func TestExchangeTokenPropagatesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, time.Second).ExchangeToken(context.Background(), []byte("x"), "", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.JSONEq(t, `"invalid_grant"`, string(resp.Fields["error"]))
}

func TestExchangeTokenNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, time.Second).ExchangeToken(context.Background(), nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.NotNil(t, resp.Fields)
	assert.Empty(t, resp.Fields)
}

func TestExchangeTokenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).ExchangeToken(context.Background(), nil, "", "")
	require.True(t, errors.Is(err, ErrUpstream))
}

func TestAliasIDToken(t *testing.T) {
	fields := map[string]json.RawMessage{"id_token": json.RawMessage(`"idt"`), "access_token": json.RawMessage(`"at"`)}
	out := AliasIDToken(fields)
	assert.Equal(t, `"idt"`, string(out["access_token"]))
	assert.Equal(t, `"idt"`, string(out["id_token"]))

	fields = map[string]json.RawMessage{"error": json.RawMessage(`"invalid_grant"`), "access_token": json.RawMessage(`"at"`)}
	out = AliasIDToken(fields)
	_, ok := out["access_token"]
	assert.False(t, ok)
	assert.Equal(t, `"invalid_grant"`, string(out["error"]))
}
