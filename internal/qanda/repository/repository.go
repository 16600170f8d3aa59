package repository

import (
	"context"
	"errors"

	"github.com/qanda/qanda/backend/go-services/internal/qanda"
)

var (
	// ErrNotFound is returned when an append targets a row that does not exist.
	ErrNotFound = errors.New("question not found")
	// ErrConflict is returned when an insert hits an existing row.
	ErrConflict = errors.New("question already exists")
)

// Repository is the key-value access pattern over the single table keyed by
// (pk, sk). Rows of one partition are ordered by sk.
type Repository interface {
	// Query returns at most limit rows of partition pk in descending sk order,
	// starting after startAfter when it is non-empty. The returned cursor is
	// the sk of the last row when more rows may follow, otherwise "".
	Query(ctx context.Context, pk string, limit int, startAfter string) ([]*qanda.Question, string, error)
	// Insert writes a new row and never overwrites an existing one.
	Insert(ctx context.Context, key qanda.Key, q *qanda.Question) error
	// AppendAnswer appends a to the answers list of the row at key. A row
	// without answers is treated as having an empty list.
	AppendAnswer(ctx context.Context, key qanda.Key, a *qanda.Answer) error
	// Delete removes the row at key. Deleting a missing row is not an error.
	Delete(ctx context.Context, key qanda.Key) error
}
