package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/qanda/qanda/backend/go-services/internal/qanda"
)

// MemoryRepo is an in-memory Repository with the same ordering and
// conditional-write semantics as the DynamoDB table. Used by tests and local runs.
type MemoryRepo struct {
	mu         sync.RWMutex
	partitions map[string]map[string]*qanda.Question
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{partitions: make(map[string]map[string]*qanda.Question)}
}

func (m *MemoryRepo) Query(ctx context.Context, pk string, limit int, startAfter string) ([]*qanda.Question, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.partitions[pk]
	keys := make([]string, 0, len(rows))
	for sk := range rows {
		if startAfter != "" && sk >= startAfter {
			continue
		}
		keys = append(keys, sk)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	more := false
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
		more = true
	}
	out := make([]*qanda.Question, 0, len(keys))
	for _, sk := range keys {
		out = append(out, rows[sk].Clone())
	}
	next := ""
	if more {
		next = keys[len(keys)-1]
	}
	return out, next, nil
}

func (m *MemoryRepo) Insert(ctx context.Context, key qanda.Key, q *qanda.Question) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.partitions[key.PK]
	if !ok {
		rows = make(map[string]*qanda.Question)
		m.partitions[key.PK] = rows
	}
	if _, exists := rows[key.SK]; exists {
		return ErrConflict
	}
	rows[key.SK] = q.Clone()
	return nil
}

func (m *MemoryRepo) AppendAnswer(ctx context.Context, key qanda.Key, a *qanda.Answer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.partitions[key.PK][key.SK]
	if !ok {
		return ErrNotFound
	}
	q.Answers = append(q.Answers, *a)
	return nil
}

func (m *MemoryRepo) Delete(ctx context.Context, key qanda.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.partitions[key.PK]
	if !ok {
		return nil
	}
	delete(rows, key.SK)
	if len(rows) == 0 {
		delete(m.partitions, key.PK)
	}
	return nil
}
