package qanda

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the ISO-8601 layout (UTC, millisecond precision) used for
// ids and createdAt values. Lexical order of formatted values follows time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DateLayout is the calendar-day layout used as partition key.
const DateLayout = "2006-01-02"

// Question is a posted question together with its embedded answers.
// Answers are append-only and kept in arrival order.
type Question struct {
	ID        string   `json:"id" dynamodbav:"id" bson:"id"`
	Content   string   `json:"content" dynamodbav:"content" bson:"content"`
	Answers   []Answer `json:"answers" dynamodbav:"answers" bson:"answers"`
	CreatedAt string   `json:"createdAt" dynamodbav:"createdAt" bson:"createdAt"`
}

// Answer belongs to exactly one question. It is never stored as a row of its
// own; QuestionID only serves to locate the parent row.
type Answer struct {
	ID         string `json:"id" dynamodbav:"id" bson:"id"`
	Content    string `json:"content" dynamodbav:"content" bson:"content"`
	QuestionID string `json:"questionId" dynamodbav:"questionId" bson:"questionId"`
	CreatedAt  string `json:"createdAt" dynamodbav:"createdAt" bson:"createdAt"`
}

// QuestionPage is one page of a single-day listing.
type QuestionPage struct {
	Items     []*Question `json:"items"`
	NextToken string      `json:"nextToken,omitempty"`
}

// Key addresses one row of the table.
type Key struct {
	PK string
	SK string
}

// KeyOf derives the row key for an entity id: the partition is the date part
// of the id (everything before the first "T") and the sort key is the id itself.
func KeyOf(id string) Key {
	return Key{PK: PartitionOf(id), SK: id}
}

// PartitionOf returns the partition key for id. Ids without a "T" map to
// themselves.
func PartitionOf(id string) string {
	date, _, _ := strings.Cut(id, "T")
	return date
}

// NewID mints an id of the form "<timestamp>#<uuid>" and returns it together
// with the timestamp portion.
func NewID(now time.Time, newUUID func() string) (id, createdAt string) {
	if newUUID == nil {
		newUUID = uuid.NewString
	}
	createdAt = now.UTC().Format(TimestampLayout)
	return createdAt + "#" + newUUID(), createdAt
}

// Clone returns a deep copy so callers can't mutate stored answers.
func (q *Question) Clone() *Question {
	if q == nil {
		return nil
	}
	out := *q
	out.Answers = make([]Answer, len(q.Answers))
	copy(out.Answers, q.Answers)
	return &out
}
