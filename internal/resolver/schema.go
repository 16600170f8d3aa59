package resolver

import (
	"github.com/graphql-go/graphql"
	"github.com/qanda/qanda/backend/go-services/internal/qanda"
)

func asAnswer(src interface{}) *qanda.Answer {
	switch v := src.(type) {
	case *qanda.Answer:
		return v
	case qanda.Answer:
		return &v
	}
	return nil
}

func asQuestion(src interface{}) *qanda.Question {
	switch v := src.(type) {
	case *qanda.Question:
		return v
	case qanda.Question:
		return &v
	}
	return nil
}

func answerField(t graphql.Output, get func(*qanda.Answer) interface{}) *graphql.Field {
	return &graphql.Field{Type: t, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		if a := asAnswer(p.Source); a != nil {
			return get(a), nil
		}
		return nil, nil
	}}
}

func questionField(t graphql.Output, get func(*qanda.Question) interface{}) *graphql.Field {
	return &graphql.Field{Type: t, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		if q := asQuestion(p.Source); q != nil {
			return get(q), nil
		}
		return nil, nil
	}}
}

// NewSchema builds the GraphQL schema. Every root field resolves through
// d.Resolve under its own field name.
func NewSchema(d *Dispatcher) (graphql.Schema, error) {
	nonNullString := graphql.NewNonNull(graphql.String)
	nonNullID := graphql.NewNonNull(graphql.ID)

	answerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Answer",
		Fields: graphql.Fields{
			"id":         answerField(nonNullID, func(a *qanda.Answer) interface{} { return a.ID }),
			"content":    answerField(nonNullString, func(a *qanda.Answer) interface{} { return a.Content }),
			"questionId": answerField(nonNullID, func(a *qanda.Answer) interface{} { return a.QuestionID }),
			"createdAt":  answerField(nonNullString, func(a *qanda.Answer) interface{} { return a.CreatedAt }),
		},
	})

	questionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Question",
		Fields: graphql.Fields{
			"id":      questionField(nonNullID, func(q *qanda.Question) interface{} { return q.ID }),
			"content": questionField(nonNullString, func(q *qanda.Question) interface{} { return q.Content }),
			"answers": questionField(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(answerType))), func(q *qanda.Question) interface{} {
				if q.Answers == nil {
					return []qanda.Answer{}
				}
				return q.Answers
			}),
			"createdAt": questionField(nonNullString, func(q *qanda.Question) interface{} { return q.CreatedAt }),
		},
	})

	connectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "QuestionConnection",
		Fields: graphql.Fields{
			"items": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(questionType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if page, ok := p.Source.(*qanda.QuestionPage); ok && page.Items != nil {
						return page.Items, nil
					}
					return []*qanda.Question{}, nil
				},
			},
			"nextToken": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if page, ok := p.Source.(*qanda.QuestionPage); ok && page.NextToken != "" {
						return page.NextToken, nil
					}
					return nil, nil
				},
			},
		},
	})

	resolve := func(p graphql.ResolveParams) (interface{}, error) {
		return d.Resolve(p.Context, p.Info.FieldName, p.Args)
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"listQuestions": &graphql.Field{
				Type: graphql.NewNonNull(connectionType),
				Args: graphql.FieldConfigArgument{
					"date":      &graphql.ArgumentConfig{Type: nonNullString},
					"limit":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"nextToken": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: resolve,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"postQuestion": &graphql.Field{
				Type:    graphql.NewNonNull(questionType),
				Args:    graphql.FieldConfigArgument{"content": &graphql.ArgumentConfig{Type: nonNullString}},
				Resolve: resolve,
			},
			"postAnswer": &graphql.Field{
				Type: graphql.NewNonNull(answerType),
				Args: graphql.FieldConfigArgument{
					"content":    &graphql.ArgumentConfig{Type: nonNullString},
					"questionId": &graphql.ArgumentConfig{Type: nonNullID},
				},
				Resolve: resolve,
			},
			"deleteQuestion": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Boolean),
				Args:    graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: nonNullID}},
				Resolve: resolve,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
}
