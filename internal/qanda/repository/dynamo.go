package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qanda/qanda/backend/go-services/internal/qanda"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoRepo.
type DynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoRow is the stored shape: {pk, sk, id, content, answers?, createdAt}.
type dynamoRow struct {
	PK        string         `dynamodbav:"pk"`
	SK        string         `dynamodbav:"sk"`
	ID        string         `dynamodbav:"id"`
	Content   string         `dynamodbav:"content"`
	Answers   []qanda.Answer `dynamodbav:"answers,omitempty"`
	CreatedAt string         `dynamodbav:"createdAt"`
}

// DynamoRepo implements Repository on a DynamoDB table with a string
// partition key "pk" and a string sort key "sk".
type DynamoRepo struct {
	client DynamoAPI
	table  string
}

func NewDynamoRepo(client DynamoAPI, table string) *DynamoRepo {
	return &DynamoRepo{client: client, table: table}
}

func keyAttributes(key qanda.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: key.PK},
		"sk": &types.AttributeValueMemberS{Value: key.SK},
	}
}

func (r *DynamoRepo) Query(ctx context.Context, pk string, limit int, startAfter string) ([]*qanda.Question, string, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}
	if startAfter != "" {
		in.ExclusiveStartKey = keyAttributes(qanda.Key{PK: pk, SK: startAfter})
	}

	out, err := r.client.Query(ctx, in)
	if err != nil {
		return nil, "", fmt.Errorf("dynamo query %s: %w", pk, err)
	}

	var rows []dynamoRow
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
		return nil, "", fmt.Errorf("unmarshal dynamo items: %w", err)
	}
	items := make([]*qanda.Question, 0, len(rows))
	for _, row := range rows {
		answers := row.Answers
		if answers == nil {
			answers = []qanda.Answer{}
		}
		items = append(items, &qanda.Question{ID: row.ID, Content: row.Content, Answers: answers, CreatedAt: row.CreatedAt})
	}

	next := ""
	if sk, ok := out.LastEvaluatedKey["sk"].(*types.AttributeValueMemberS); ok {
		next = sk.Value
	}
	return items, next, nil
}

func (r *DynamoRepo) Insert(ctx context.Context, key qanda.Key, q *qanda.Question) error {
	item, err := attributevalue.MarshalMap(dynamoRow{PK: key.PK, SK: key.SK, ID: q.ID, Content: q.Content, CreatedAt: q.CreatedAt})
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}
	answers, err := marshalAnswers(q.Answers)
	if err != nil {
		return err
	}
	item["answers"] = answers

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConflict
		}
		return fmt.Errorf("dynamo put %s: %w", key.SK, err)
	}
	return nil
}

func (r *DynamoRepo) AppendAnswer(ctx context.Context, key qanda.Key, a *qanda.Answer) error {
	answer, err := marshalAnswers([]qanda.Answer{*a})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 keyAttributes(key),
		UpdateExpression:    aws.String("SET answers = list_append(if_not_exists(answers, :empty), :answer)"),
		ConditionExpression: aws.String("attribute_exists(pk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":answer": answer,
			":empty":  &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		},
		ReturnValues: types.ReturnValueNone,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("dynamo append answer to %s: %w", key.SK, err)
	}
	return nil
}

func (r *DynamoRepo) Delete(ctx context.Context, key qanda.Key) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       keyAttributes(key),
	})
	if err != nil {
		return fmt.Errorf("dynamo delete %s: %w", key.SK, err)
	}
	return nil
}

// marshalAnswers always encodes a list attribute, even for zero answers.
func marshalAnswers(answers []qanda.Answer) (types.AttributeValue, error) {
	list := make([]types.AttributeValue, 0, len(answers))
	for _, a := range answers {
		m, err := attributevalue.MarshalMap(a)
		if err != nil {
			return nil, fmt.Errorf("marshal answer: %w", err)
		}
		list = append(list, &types.AttributeValueMemberM{Value: m})
	}
	return &types.AttributeValueMemberL{Value: list}, nil
}
