package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/qanda/qanda/backend/go-services/internal/qanda"
	"github.com/qanda/qanda/backend/go-services/internal/qanda/repository"
	"github.com/stretchr/testify/require"
)

// steppingClock advances by one millisecond per call so ids stay distinct.
func steppingClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(time.Millisecond)
		return now
	}
}

func newTestStore(t *testing.T) (*Store, *repository.MemoryRepo) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	n := 0
	s := NewStore(repo,
		WithClock(steppingClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))),
		WithUUID(func() string { n++; return fmt.Sprintf("uuid-%03d", n) }),
	)
	return s, repo
}

func TestPostQuestionRoundTrips(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, content := range []string{"Q1", "what is go?", "ünïcode ✓", " padded "} {
		q, err := s.PostQuestion(ctx, content)
		require.NoError(t, err)
		require.Equal(t, content, q.Content)
		require.NotNil(t, q.Answers)
		require.Empty(t, q.Answers)
		require.Equal(t, q.CreatedAt+"#", q.ID[:len(q.CreatedAt)+1])

		page, err := s.ListQuestions(ctx, qanda.PartitionOf(q.ID), 100, "")
		require.NoError(t, err)
		require.Equal(t, q, page.Items[0])
	}
}

func TestPostQuestionRejectsEmptyContent(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.PostQuestion(context.Background(), "  ")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPostAnswerAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	q, err := s.PostQuestion(ctx, "Q")
	require.NoError(t, err)

	var posted []qanda.Answer
	for i := 0; i < 4; i++ {
		a, err := s.PostAnswer(ctx, fmt.Sprintf("A%d", i), q.ID)
		require.NoError(t, err)
		require.Equal(t, q.ID, a.QuestionID)
		posted = append(posted, *a)

		page, err := s.ListQuestions(ctx, "2024-05-01", 10, "")
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		require.Equal(t, posted, page.Items[0].Answers)
	}
}

func TestPostAnswerKeysOnQuestionNotAnswer(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	// the question lives on 2024-05-01, the answer is minted a day later
	qs := NewStore(repo, WithClock(func() time.Time { return time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC) }))
	as := NewStore(repo, WithClock(func() time.Time { return time.Date(2024, 5, 2, 0, 1, 0, 0, time.UTC) }))

	q, err := qs.PostQuestion(ctx, "late question")
	require.NoError(t, err)
	a, err := as.PostAnswer(ctx, "early answer", q.ID)
	require.NoError(t, err)
	require.Equal(t, "2024-05-02", qanda.PartitionOf(a.ID))

	page, err := qs.ListQuestions(ctx, "2024-05-01", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items[0].Answers, 1)

	page, err = qs.ListQuestions(ctx, "2024-05-02", 10, "")
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestPostAnswerMissingQuestion(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.PostAnswer(context.Background(), "A", "2024-05-01T00:00:00.000Z#nope")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.PostAnswer(context.Background(), "A", "")
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.PostAnswer(context.Background(), "", "x")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestListQuestionsLimitOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for i := 0; i < 7; i++ {
		_, err := s.PostQuestion(ctx, fmt.Sprintf("Q%d", i))
		require.NoError(t, err)
	}

	var seen []string
	cursor := ""
	for {
		page, err := s.ListQuestions(ctx, "2024-05-01", 3, cursor)
		require.NoError(t, err)
		require.LessOrEqual(t, len(page.Items), 3)
		for i := 1; i < len(page.Items); i++ {
			require.Greater(t, page.Items[i-1].ID, page.Items[i].ID)
		}
		for _, q := range page.Items {
			seen = append(seen, q.ID)
		}
		if page.NextToken == "" {
			break
		}
		cursor = page.NextToken
	}
	require.Len(t, seen, 7)
	require.True(t, sort.SliceIsSorted(seen, func(i, j int) bool { return seen[i] > seen[j] }))
}

func TestListQuestionsValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.ListQuestions(ctx, "01/05/2024", 5, "")
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.ListQuestions(ctx, "2024-05-01", 0, "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	page, err := s.ListQuestions(ctx, "2024-05-01", 10_000, "")
	require.NoError(t, err)
	require.NotNil(t, page.Items)
}

type capturingRepo struct {
	repository.Repository
	limit int
	err   error
}

func (c *capturingRepo) Query(ctx context.Context, pk string, limit int, startAfter string) ([]*qanda.Question, string, error) {
	c.limit = limit
	return nil, "", c.err
}

func TestListQuestionsCapsLimitAndWrapsErrors(t *testing.T) {
	repo := &capturingRepo{}
	s := NewStore(repo)
	page, err := s.ListQuestions(context.Background(), "2024-05-01", 500, "")
	require.NoError(t, err)
	require.Equal(t, MaxListLimit, repo.limit)
	require.NotNil(t, page.Items)

	repo.err = errors.New("store unavailable")
	_, err = s.ListQuestions(context.Background(), "2024-05-01", 5, "")
	require.ErrorIs(t, err, repo.err)
}

func TestDeleteQuestionIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	q, err := s.PostQuestion(ctx, "Q")
	require.NoError(t, err)

	ok, err := s.DeleteQuestion(ctx, q.ID)
	require.NoError(t, err)
	require.True(t, ok)

	page, err := s.ListQuestions(ctx, "2024-05-01", 10, "")
	require.NoError(t, err)
	for _, item := range page.Items {
		require.NotEqual(t, q.ID, item.ID)
	}

	ok, err = s.DeleteQuestion(ctx, q.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.DeleteQuestion(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
}
