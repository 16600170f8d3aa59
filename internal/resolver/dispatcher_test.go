package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/qanda/qanda/backend/go-services/internal/qanda"
	"github.com/qanda/qanda/backend/go-services/internal/qanda/repository"
	"github.com/qanda/qanda/backend/go-services/internal/qanda/service"
	"github.com/qanda/qanda/backend/go-services/pkg/metrics"
	"github.com/qanda/qanda/backend/go-services/pkg/middleware"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newStore() *service.Store {
	n := 0
	tick := fixedNow
	return service.NewStore(repository.NewMemoryRepo(),
		service.WithClock(func() time.Time { tick = tick.Add(time.Millisecond); return tick }),
		service.WithUUID(func() string { n++; return fmt.Sprintf("u%d", n) }),
	)
}

func withGroups(groups ...interface{}) context.Context {
	return middleware.WithClaims(context.Background(), map[string]interface{}{"sub": "u", "cognito:groups": groups})
}

func TestDispatchRoutesEachKind(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(newStore())

	res, err := d.Dispatch(ctx, PostQuestionCall{Content: "Q1"})
	require.NoError(t, err)
	q := res.(*qanda.Question)
	require.Equal(t, "Q1", q.Content)

	res, err = d.Dispatch(ctx, PostAnswerCall{Content: "A1", QuestionID: q.ID})
	require.NoError(t, err)
	a := res.(*qanda.Answer)
	require.Equal(t, q.ID, a.QuestionID)

	res, err = d.Dispatch(ctx, ListQuestionsCall{Date: "2024-05-01", Limit: 5})
	require.NoError(t, err)
	page := res.(*qanda.QuestionPage)
	require.Len(t, page.Items, 1)
	require.Equal(t, []qanda.Answer{*a}, page.Items[0].Answers)

	res, err = d.Dispatch(ctx, DeleteQuestionCall{ID: q.ID})
	require.NoError(t, err)
	require.Equal(t, true, res)
}

func TestResolveUnknownFieldPassesThrough(t *testing.T) {
	res, err := NewDispatcher(newStore()).Resolve(context.Background(), "somethingElse", map[string]interface{}{"x": 1})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestResolveBadArguments(t *testing.T) {
	before := testutil.ToFloat64(metrics.ResolverOperations.WithLabelValues("postQuestion", "bad_arguments"))
	_, err := NewDispatcher(newStore()).Resolve(context.Background(), "postQuestion", map[string]interface{}{"content": 3})
	require.ErrorIs(t, err, ErrBadArguments)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ResolverOperations.WithLabelValues("postQuestion", "bad_arguments")))
}

func TestResolveValidationErrorsSurface(t *testing.T) {
	_, err := NewDispatcher(newStore()).Resolve(context.Background(), "listQuestions", map[string]interface{}{"date": "yesterday", "limit": 5})
	require.ErrorIs(t, err, service.ErrInvalidArgument)

	_, err = NewDispatcher(newStore()).Resolve(context.Background(), "postAnswer", map[string]interface{}{"content": "A", "questionId": "2024-05-01T00:00:00.000Z#gone"})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

type brokenStore struct{ Store }

func (brokenStore) PostQuestion(context.Context, string) (*qanda.Question, error) {
	return nil, errors.New("dial tcp 10.0.0.1:443: connection refused")
}

func TestResolveMasksStoreFailures(t *testing.T) {
	before := testutil.ToFloat64(metrics.ResolverOperations.WithLabelValues("postQuestion", "error"))
	res, err := NewDispatcher(brokenStore{}).Resolve(context.Background(), "postQuestion", map[string]interface{}{"content": "Q"})
	require.Nil(t, res)
	require.ErrorIs(t, err, ErrInternal)
	require.NotContains(t, err.Error(), "10.0.0.1")
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ResolverOperations.WithLabelValues("postQuestion", "error")))
}

func TestResolveEnforcesGroupPolicy(t *testing.T) {
	d := NewDispatcher(newStore(), WithGroupPolicy(DefaultGroupPolicy()))
	list := map[string]interface{}{"date": "2024-05-01", "limit": 5}
	post := map[string]interface{}{"content": "Q"}

	_, err := d.Resolve(context.Background(), "listQuestions", list)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = d.Resolve(withGroups("Readers"), "listQuestions", list)
	require.NoError(t, err)
	_, err = d.Resolve(withGroups("Readers"), "postQuestion", post)
	require.ErrorIs(t, err, ErrForbidden)

	res, err := d.Resolve(withGroups("Posters"), "postQuestion", post)
	require.NoError(t, err)
	id := res.(*qanda.Question).ID

	_, err = d.Resolve(withGroups("Posters"), "deleteQuestion", map[string]interface{}{"id": id})
	require.ErrorIs(t, err, ErrForbidden)
	res, err = d.Resolve(withGroups("Readers", "Moderators"), "deleteQuestion", map[string]interface{}{"id": id})
	require.NoError(t, err)
	require.Equal(t, true, res)
}

func TestGroupsFromContext(t *testing.T) {
	require.Nil(t, GroupsFromContext(context.Background()))
	require.Equal(t, []string{"Readers", "Posters"}, GroupsFromContext(withGroups("Readers", "Posters")))

	ctx := middleware.WithClaims(context.Background(), map[string]interface{}{"groups": "Readers,Moderators"})
	require.Equal(t, []string{"Readers", "Moderators"}, GroupsFromContext(ctx))

	ctx = middleware.WithClaims(context.Background(), map[string]interface{}{"groups": []string{"Posters"}})
	require.Equal(t, []string{"Posters"}, GroupsFromContext(ctx))
}
