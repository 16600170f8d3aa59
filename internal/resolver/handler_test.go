package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/qanda/qanda/backend/go-services/pkg/middleware"
	"github.com/stretchr/testify/require"
)

type fakeToken struct{ claims map[string]interface{} }

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.claims
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier accepts "reader" and "moderator" tokens.
type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	switch raw {
	case "reader":
		return &fakeToken{claims: map[string]interface{}{"sub": "r", "cognito:groups": []interface{}{"Readers"}}}, nil
	case "moderator":
		return &fakeToken{claims: map[string]interface{}{"sub": "m", "cognito:groups": []interface{}{"Moderators"}}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func newTestRouter(t *testing.T, opts ...Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	schema, err := NewSchema(NewDispatcher(newStore(), opts...))
	require.NoError(t, err)
	return NewRouter(NewHandler(schema), fakeVerifier{})
}

func post(r http.Handler, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerRequiresToken(t *testing.T) {
	r := newTestRouter(t)
	w := post(r, "", `{"query":"{ listQuestions(date:\"2024-05-01\", limit:1) { items { id } } }"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(r, "forged", `{"query":"{ listQuestions(date:\"2024-05-01\", limit:1) { items { id } } }"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlerRejectsMalformedBody(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusBadRequest, post(r, "reader", `{not json`).Code)
	require.Equal(t, http.StatusBadRequest, post(r, "reader", `{"variables":{}}`).Code)
}

func TestHandlerExecutesQueries(t *testing.T) {
	r := newTestRouter(t)
	body, _ := json.Marshal(Request{
		Query:     `mutation Post($c: String!) { postQuestion(content: $c) { id content } }`,
		Variables: map[string]interface{}{"c": "hello"},
	})
	w := post(r, "reader", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Data struct {
			PostQuestion struct {
				ID      string `json:"id"`
				Content string `json:"content"`
			} `json:"postQuestion"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Empty(t, got.Errors)
	require.Equal(t, "hello", got.Data.PostQuestion.Content)
	require.NotEmpty(t, got.Data.PostQuestion.ID)
}

func TestHandlerReportsForbiddenInBody(t *testing.T) {
	r := newTestRouter(t, WithGroupPolicy(DefaultGroupPolicy()))
	w := post(r, "reader", `{"query":"mutation { deleteQuestion(id: \"abc\") }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "forbidden")

	w = post(r, "moderator", `{"query":"mutation { deleteQuestion(id: \"abc\") }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"deleteQuestion":true}}`, w.Body.String())
}

func TestRouterHealth(t *testing.T) {
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "healthy", w.Body.String())
}
