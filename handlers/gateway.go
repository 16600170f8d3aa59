package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qanda/qanda/backend/go-services/internal/graphqlclient"
	"github.com/qanda/qanda/backend/go-services/internal/idp"
	"github.com/qanda/qanda/backend/go-services/internal/qanda"
	"github.com/qanda/qanda/backend/go-services/pkg/logger"
)

// listLimit is the page size of GET /questions.
const listLimit = 5

// compensateTimeout bounds the rollback delete issued after a failed
// question+answer write, independent of the request budget.
const compensateTimeout = 5 * time.Second

const (
	listQuestionsQuery = `query ListQuestions($date: String!, $limit: Int!) {
  listQuestions(date: $date, limit: $limit) {
    items {
      id
      content
      createdAt
      answers { id content questionId createdAt }
    }
  }
}`
	postQuestionQuery = `mutation PostQuestion($content: String!) {
  postQuestion(content: $content) { id }
}`
	postAnswerQuery = `mutation PostAnswer($content: String!, $questionId: ID!) {
  postAnswer(content: $content, questionId: $questionId) { id content questionId createdAt }
}`
	deleteQuestionQuery = `mutation DeleteQuestion($questionId: ID!) {
  deleteQuestion(id: $questionId)
}`
)

// TokenExchanger performs the OAuth2 token call against the IdP.
type TokenExchanger interface {
	ExchangeToken(ctx context.Context, body []byte, authorization, contentType string) (*idp.TokenResponse, error)
}

// GraphQLExecutor runs one GraphQL document against the resolver endpoint.
type GraphQLExecutor interface {
	Execute(ctx context.Context, authorization string, req graphqlclient.Request, out interface{}) error
}

type GatewayOption func(*GatewayHandler)

// WithClock overrides the clock that picks "today" for GET /questions.
func WithClock(now func() time.Time) GatewayOption {
	return func(h *GatewayHandler) { h.now = now }
}

// GatewayHandler translates the REST surface into token exchanges and
// GraphQL calls. It makes no authorization decision of its own: the caller's
// Authorization header is forwarded unchanged.
type GatewayHandler struct {
	tokens   TokenExchanger
	resolver GraphQLExecutor
	now      func() time.Time
}

func NewGatewayHandler(tokens TokenExchanger, resolver GraphQLExecutor, opts ...GatewayOption) *GatewayHandler {
	h := &GatewayHandler{tokens: tokens, resolver: resolver, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register installs the routing table on r. Anything outside the table,
// including a known path with the wrong method, answers 405.
func (h *GatewayHandler) Register(r *gin.Engine) {
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = true

	r.POST("/oauth2/token", h.ExchangeToken)
	r.GET("/questions", h.ListQuestions)
	r.POST("/questions", h.PostQuestion)
	r.POST("/questions/:id/answers", h.PostAnswer)
	r.DELETE("/questions/:id", h.DeleteQuestion)

	notAllowed := func(c *gin.Context) { respondError(c, ErrRouting) }
	r.NoRoute(notAllowed)
	r.NoMethod(notAllowed)
}

// ExchangeToken proxies POST /oauth2/token and aliases id_token as access_token.
func (h *GatewayHandler) ExchangeToken(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, fmt.Errorf("read token request: %w", err))
		return
	}
	resp, err := h.tokens.ExchangeToken(c.Request.Context(), body, c.GetHeader("Authorization"), c.GetHeader("Content-Type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(resp.Status, idp.AliasIDToken(resp.Fields))
}

// ListQuestions serves GET /questions: today's newest questions, items only.
func (h *GatewayHandler) ListQuestions(c *gin.Context) {
	var out struct {
		ListQuestions struct {
			Items []*qanda.Question `json:"items"`
		} `json:"listQuestions"`
	}
	err := h.resolver.Execute(c.Request.Context(), c.GetHeader("Authorization"), graphqlclient.Request{
		Query: listQuestionsQuery,
		Variables: map[string]interface{}{
			"date":  h.now().UTC().Format(qanda.DateLayout),
			"limit": listLimit,
		},
	}, &out)
	if err != nil {
		respondError(c, fmt.Errorf("list questions: %w", err))
		return
	}
	items := out.ListQuestions.Items
	if items == nil {
		items = []*qanda.Question{}
	}
	c.JSON(http.StatusOK, items)
}

// PostQuestion serves POST /questions with body {question, answer}. The two
// writes are not atomic; when the answer write fails the question is deleted
// again on a best-effort basis and the request still fails.
func (h *GatewayHandler) PostQuestion(c *gin.Context) {
	var body struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := bindJSON(c, &body); err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	auth := c.GetHeader("Authorization")

	var q struct {
		PostQuestion struct {
			ID string `json:"id"`
		} `json:"postQuestion"`
	}
	if err := h.resolver.Execute(ctx, auth, graphqlclient.Request{
		Query:     postQuestionQuery,
		Variables: map[string]interface{}{"content": body.Question},
	}, &q); err != nil {
		respondError(c, fmt.Errorf("post question: %w", err))
		return
	}
	questionID := q.PostQuestion.ID

	var a struct {
		PostAnswer struct {
			ID string `json:"id"`
		} `json:"postAnswer"`
	}
	if err := h.resolver.Execute(ctx, auth, graphqlclient.Request{
		Query:     postAnswerQuery,
		Variables: map[string]interface{}{"content": body.Answer, "questionId": questionID},
	}, &a); err != nil {
		h.compensate(ctx, auth, questionID)
		respondError(c, fmt.Errorf("post answer for new question %s: %w", questionID, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"questionId": questionID, "answerId": a.PostAnswer.ID})
}

func (h *GatewayHandler) compensate(ctx context.Context, auth, questionID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	err := h.resolver.Execute(ctx, auth, graphqlclient.Request{
		Query:     deleteQuestionQuery,
		Variables: map[string]interface{}{"questionId": questionID},
	}, nil)
	if err != nil {
		logger.Errorf("compensating delete of question %s failed: %v", questionID, err)
		return
	}
	logger.Warnf("rolled back question %s after failed answer write", questionID)
}

// PostAnswer serves POST /questions/{id}/answers with body {content}.
func (h *GatewayHandler) PostAnswer(c *gin.Context) {
	questionID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := bindJSON(c, &body); err != nil {
		respondError(c, err)
		return
	}
	var out struct {
		PostAnswer qanda.Answer `json:"postAnswer"`
	}
	if err := h.resolver.Execute(c.Request.Context(), c.GetHeader("Authorization"), graphqlclient.Request{
		Query:     postAnswerQuery,
		Variables: map[string]interface{}{"content": body.Content, "questionId": questionID},
	}, &out); err != nil {
		respondError(c, fmt.Errorf("post answer: %w", err))
		return
	}
	c.JSON(http.StatusOK, out.PostAnswer)
}

// DeleteQuestion serves DELETE /questions/{id}. Unknown ids still answer 204.
func (h *GatewayHandler) DeleteQuestion(c *gin.Context) {
	questionID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var out struct {
		DeleteQuestion bool `json:"deleteQuestion"`
	}
	if err := h.resolver.Execute(c.Request.Context(), c.GetHeader("Authorization"), graphqlclient.Request{
		Query:     deleteQuestionQuery,
		Variables: map[string]interface{}{"questionId": questionID},
	}, &out); err != nil {
		respondError(c, fmt.Errorf("delete question: %w", err))
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return "", invalid("Question ID is required")
	}
	return id, nil
}

// bindJSON decodes the request body into v. An empty body leaves v untouched.
func bindJSON(c *gin.Context, v interface{}) error {
	raw, err := c.GetRawData()
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalid("Request body must be a JSON object")
	}
	return nil
}
