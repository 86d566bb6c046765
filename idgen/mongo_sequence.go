package idgen

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/forbearing/quickdb/quickdberr"
)

// MongoSequence is the per-alias monotonically increasing integer id
// generator backed by a dedicated counters collection, for callers that
// want a Mongo-friendly numeric id instead of an ObjectId.
type MongoSequence struct {
	counters *mongo.Collection
}

// NewMongoSequence wraps the alias's counters collection (conventionally
// named "quickdb_counters").
func NewMongoSequence(counters *mongo.Collection) *MongoSequence {
	return &MongoSequence{counters: counters}
}

// Next increments and returns the next sequence value for name (typically
// the target collection name) via a single $inc upsert.
func (s *MongoSequence) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, quickdberr.Query(err, "increment mongo sequence counter %q", name)
	}
	return doc.Seq, nil
}
