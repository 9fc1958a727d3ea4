package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sheetRecord is one user's document in the sheets collection. The sheet is
// kept as a string so key order and number formatting survive the round trip.
type sheetRecord struct {
	Username  string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoSheetStore keeps sheet documents in MongoDB, one record per user.
type MongoSheetStore struct {
	col *mongo.Collection
}

func NewMongoSheetStore(db *mongo.Database) *MongoSheetStore {
	return &MongoSheetStore{col: db.Collection("sheets")}
}

func (s *MongoSheetStore) SaveSheet(ctx context.Context, username string, doc []byte) error {
	rec := sheetRecord{Username: username, Data: string(doc), UpdatedAt: time.Now().UTC()}
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": username}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo save sheet: %w", err)
	}
	return nil
}

func (s *MongoSheetStore) LoadSheet(ctx context.Context, username string) ([]byte, error) {
	var rec sheetRecord
	err := s.col.FindOne(ctx, bson.M{"_id": username}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo load sheet: %w", err)
	}
	return []byte(rec.Data), nil
}
