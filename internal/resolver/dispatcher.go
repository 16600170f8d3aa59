package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qanda/qanda/backend/go-services/internal/qanda"
	"github.com/qanda/qanda/backend/go-services/internal/qanda/repository"
	"github.com/qanda/qanda/backend/go-services/internal/qanda/service"
	"github.com/qanda/qanda/backend/go-services/pkg/logger"
	"github.com/qanda/qanda/backend/go-services/pkg/metrics"
	"github.com/qanda/qanda/backend/go-services/pkg/middleware"
)

var (
	ErrForbidden = errors.New("forbidden")
	// ErrInternal replaces store failures in resolver results; the cause is logged.
	ErrInternal = errors.New("internal error")
)

// Store is the set of storage operations the dispatcher routes to.
type Store interface {
	ListQuestions(ctx context.Context, date string, limit int, cursor string) (*qanda.QuestionPage, error)
	PostQuestion(ctx context.Context, content string) (*qanda.Question, error)
	PostAnswer(ctx context.Context, content, questionID string) (*qanda.Answer, error)
	DeleteQuestion(ctx context.Context, id string) (bool, error)
}

// GroupPolicy lists, per operation, the groups allowed to call it.
type GroupPolicy map[Kind][]string

// DefaultGroupPolicy mirrors the Readers/Posters/Moderators user-pool groups.
func DefaultGroupPolicy() GroupPolicy {
	return GroupPolicy{
		KindListQuestions:  {"Readers", "Posters", "Moderators"},
		KindPostQuestion:   {"Posters", "Moderators"},
		KindPostAnswer:     {"Posters", "Moderators"},
		KindDeleteQuestion: {"Moderators"},
	}
}

// Allows reports whether any of groups may call kind.
func (p GroupPolicy) Allows(kind Kind, groups []string) bool {
	for _, allowed := range p[kind] {
		for _, g := range groups {
			if g == allowed {
				return true
			}
		}
	}
	return false
}

// GroupsFromContext reads the caller's groups from the verified token claims.
func GroupsFromContext(ctx context.Context) []string {
	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		return nil
	}
	raw, ok := claims["cognito:groups"]
	if !ok {
		raw = claims["groups"]
	}
	switch v := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, g := range v {
			if s, ok := g.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		return strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	return nil
}

type Option func(*Dispatcher)

// WithGroupPolicy enables group enforcement.
func WithGroupPolicy(p GroupPolicy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// Dispatcher routes decoded calls to the Store. It keeps no per-call state.
type Dispatcher struct {
	store  Store
	policy GroupPolicy
}

func NewDispatcher(store Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch invokes the store operation matching call and returns its result unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (interface{}, error) {
	switch c := call.(type) {
	case ListQuestionsCall:
		page, err := d.store.ListQuestions(ctx, c.Date, c.Limit, c.NextToken)
		if err != nil {
			return nil, err
		}
		return page, nil
	case PostQuestionCall:
		q, err := d.store.PostQuestion(ctx, c.Content)
		if err != nil {
			return nil, err
		}
		return q, nil
	case PostAnswerCall:
		a, err := d.store.PostAnswer(ctx, c.Content, c.QuestionID)
		if err != nil {
			return nil, err
		}
		return a, nil
	case DeleteQuestionCall:
		return d.store.DeleteQuestion(ctx, c.ID)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownOperation, call)
}

// Resolve decodes, authorizes and dispatches the operation named field.
// Names outside the known set resolve to nil without error.
func (d *Dispatcher) Resolve(ctx context.Context, field string, args map[string]interface{}) (interface{}, error) {
	kind, ok := ParseKind(field)
	if !ok {
		logger.Debugf("resolver: passing through unknown field %q", field)
		return nil, nil
	}
	call, err := DecodeCall(field, args)
	if err != nil {
		metrics.ResolverOperations.WithLabelValues(kind.String(), "bad_arguments").Inc()
		return nil, err
	}
	if d.policy != nil && !d.policy.Allows(kind, GroupsFromContext(ctx)) {
		metrics.ResolverOperations.WithLabelValues(kind.String(), "forbidden").Inc()
		return nil, fmt.Errorf("%w: %s", ErrForbidden, kind)
	}

	res, err := d.Dispatch(ctx, call)
	switch {
	case err == nil:
		metrics.ResolverOperations.WithLabelValues(kind.String(), "ok").Inc()
		return res, nil
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, repository.ErrNotFound):
		metrics.ResolverOperations.WithLabelValues(kind.String(), "rejected").Inc()
		return nil, err
	default:
		metrics.ResolverOperations.WithLabelValues(kind.String(), "error").Inc()
		logger.Errorf("resolver: %s failed: %v", kind, err)
		return nil, ErrInternal
	}
}
