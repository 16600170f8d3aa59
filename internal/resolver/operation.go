package resolver

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrBadArguments     = errors.New("bad arguments")
	ErrUnknownOperation = errors.New("unknown operation")
)

// Kind enumerates the operations the dispatcher can route.
type Kind int

const (
	KindListQuestions Kind = iota + 1
	KindPostQuestion
	KindPostAnswer
	KindDeleteQuestion
)

var kindNames = map[Kind]string{
	KindListQuestions:  "listQuestions",
	KindPostQuestion:   "postQuestion",
	KindPostAnswer:     "postAnswer",
	KindDeleteQuestion: "deleteQuestion",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a field name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Call is a decoded operation with typed arguments. The set of
// implementations is closed to this package.
type Call interface {
	Kind() Kind
	call()
}

type ListQuestionsCall struct {
	Date      string
	Limit     int
	NextToken string
}

type PostQuestionCall struct {
	Content string
}

type PostAnswerCall struct {
	Content    string
	QuestionID string
}

type DeleteQuestionCall struct {
	ID string
}

func (ListQuestionsCall) Kind() Kind  { return KindListQuestions }
func (PostQuestionCall) Kind() Kind   { return KindPostQuestion }
func (PostAnswerCall) Kind() Kind     { return KindPostAnswer }
func (DeleteQuestionCall) Kind() Kind { return KindDeleteQuestion }

func (ListQuestionsCall) call()  {}
func (PostQuestionCall) call()   {}
func (PostAnswerCall) call()     {}
func (DeleteQuestionCall) call() {}

// DecodeCall type-checks args for the operation named field.
func DecodeCall(field string, args map[string]interface{}) (Call, error) {
	kind, ok := ParseKind(field)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, field)
	}
	switch kind {
	case KindListQuestions:
		date, err := stringArg(args, "date", true)
		if err != nil {
			return nil, err
		}
		limit, err := intArg(args, "limit")
		if err != nil {
			return nil, err
		}
		next, err := stringArg(args, "nextToken", false)
		if err != nil {
			return nil, err
		}
		return ListQuestionsCall{Date: date, Limit: limit, NextToken: next}, nil
	case KindPostQuestion:
		content, err := stringArg(args, "content", true)
		if err != nil {
			return nil, err
		}
		return PostQuestionCall{Content: content}, nil
	case KindPostAnswer:
		content, err := stringArg(args, "content", true)
		if err != nil {
			return nil, err
		}
		qid, err := stringArg(args, "questionId", true)
		if err != nil {
			return nil, err
		}
		return PostAnswerCall{Content: content, QuestionID: qid}, nil
	case KindDeleteQuestion:
		id, err := stringArg(args, "id", true)
		if err != nil {
			return nil, err
		}
		return DeleteQuestionCall{ID: id}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, field)
}

func stringArg(args map[string]interface{}, name string, required bool) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%w: %s is required", ErrBadArguments, name)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrBadArguments, name, v)
	}
	return s, nil
}

// intArg accepts the integer shapes produced by the GraphQL executor and by
// JSON decoding of variables.
func intArg(args map[string]interface{}, name string) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: %s is required", ErrBadArguments, name)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) && math.Abs(n) <= math.MaxInt32 {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrBadArguments, name, v)
}
