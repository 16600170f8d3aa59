package repository

import (
	"context"
	"fmt"

	"github.com/qanda/qanda/backend/go-services/internal/qanda"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoRow mirrors the DynamoDB row shape so either store can back the service.
type mongoRow struct {
	PK        string         `bson:"pk"`
	SK        string         `bson:"sk"`
	ID        string         `bson:"id"`
	Content   string         `bson:"content"`
	Answers   []qanda.Answer `bson:"answers"`
	CreatedAt string         `bson:"createdAt"`
}

// MongoRepo implements Repository on a MongoDB collection. A unique compound
// index on (pk, sk) gives the same addressing as the DynamoDB table.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "pk", Value: 1}, {Key: "sk", Value: -1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("ensure pk/sk index: %w", err)
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Query(ctx context.Context, pk string, limit int, startAfter string) ([]*qanda.Question, string, error) {
	filter := bson.M{"pk": pk}
	if startAfter != "" {
		filter["sk"] = bson.M{"$lt": startAfter}
	}
	opts := options.Find().SetSort(bson.D{{Key: "sk", Value: -1}})
	if limit > 0 {
		// one extra row tells whether another page exists
		opts.SetLimit(int64(limit) + 1)
	}
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, "", fmt.Errorf("mongo find %s: %w", pk, err)
	}
	defer cur.Close(ctx)

	var rows []mongoRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, "", fmt.Errorf("mongo decode: %w", err)
	}
	next := ""
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
		next = rows[len(rows)-1].SK
	}
	out := make([]*qanda.Question, 0, len(rows))
	for _, row := range rows {
		answers := row.Answers
		if answers == nil {
			answers = []qanda.Answer{}
		}
		out = append(out, &qanda.Question{ID: row.ID, Content: row.Content, Answers: answers, CreatedAt: row.CreatedAt})
	}
	return out, next, nil
}

func (m *MongoRepo) Insert(ctx context.Context, key qanda.Key, q *qanda.Question) error {
	answers := q.Answers
	if answers == nil {
		answers = []qanda.Answer{}
	}
	row := mongoRow{PK: key.PK, SK: key.SK, ID: q.ID, Content: q.Content, Answers: answers, CreatedAt: q.CreatedAt}
	if _, err := m.col.InsertOne(ctx, row); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("mongo insert %s: %w", key.SK, err)
	}
	return nil
}

func (m *MongoRepo) AppendAnswer(ctx context.Context, key qanda.Key, a *qanda.Answer) error {
	res, err := m.col.UpdateOne(ctx,
		bson.M{"pk": key.PK, "sk": key.SK},
		bson.M{"$push": bson.M{"answers": a}},
	)
	if err != nil {
		return fmt.Errorf("mongo append answer to %s: %w", key.SK, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Delete(ctx context.Context, key qanda.Key) error {
	if _, err := m.col.DeleteOne(ctx, bson.M{"pk": key.PK, "sk": key.SK}); err != nil {
		return fmt.Errorf("mongo delete %s: %w", key.SK, err)
	}
	return nil
}
