package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qanda/qanda/backend/go-services/internal/qanda"
	"github.com/qanda/qanda/backend/go-services/internal/qanda/repository"
)

// MaxListLimit caps the page size of ListQuestions.
const MaxListLimit = 100

var (
	ErrInvalidArgument = errors.New("invalid argument")
)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used to mint ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithUUID overrides the random part of minted ids.
func WithUUID(newUUID func() string) Option {
	return func(s *Store) { s.newUUID = newUUID }
}

// Store exposes the question/answer operations on top of a Repository.
// It holds no per-call state and is safe for concurrent use.
type Store struct {
	repo    repository.Repository
	now     func() time.Time
	newUUID func() string
}

func NewStore(repo repository.Repository, opts ...Option) *Store {
	s := &Store{repo: repo, now: time.Now, newUUID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListQuestions returns up to limit questions created on date (YYYY-MM-DD),
// newest first, continuing after cursor when it is set.
func (s *Store) ListQuestions(ctx context.Context, date string, limit int, cursor string) (*qanda.QuestionPage, error) {
	if _, err := time.Parse(qanda.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidArgument, date)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1", ErrInvalidArgument)
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	items, next, err := s.repo.Query(ctx, date, limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("list questions for %s: %w", date, err)
	}
	if items == nil {
		items = []*qanda.Question{}
	}
	return &qanda.QuestionPage{Items: items, NextToken: next}, nil
}

// PostQuestion stores a new question and returns it exactly as written.
func (s *Store) PostQuestion(ctx context.Context, content string) (*qanda.Question, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidArgument)
	}
	id, createdAt := qanda.NewID(s.now(), s.newUUID)
	q := &qanda.Question{ID: id, Content: content, Answers: []qanda.Answer{}, CreatedAt: createdAt}
	if err := s.repo.Insert(ctx, qanda.KeyOf(id), q); err != nil {
		return nil, fmt.Errorf("post question: %w", err)
	}
	return q, nil
}

// PostAnswer appends a new answer to the question identified by questionID.
// The answer row key is derived from questionID, never from the answer id.
func (s *Store) PostAnswer(ctx context.Context, content, questionID string) (*qanda.Answer, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(questionID) == "" {
		return nil, fmt.Errorf("%w: questionId is required", ErrInvalidArgument)
	}
	id, createdAt := qanda.NewID(s.now(), s.newUUID)
	a := &qanda.Answer{ID: id, Content: content, QuestionID: questionID, CreatedAt: createdAt}
	if err := s.repo.AppendAnswer(ctx, qanda.KeyOf(questionID), a); err != nil {
		return nil, fmt.Errorf("post answer to %s: %w", questionID, err)
	}
	return a, nil
}

// DeleteQuestion removes the question row. Missing rows are not an error.
func (s *Store) DeleteQuestion(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	if err := s.repo.Delete(ctx, qanda.KeyOf(id)); err != nil {
		return false, fmt.Errorf("delete question %s: %w", id, err)
	}
	return true, nil
}
