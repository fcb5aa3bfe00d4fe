package cache

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultCollection = "cache_entries"

type mongoEntry struct {
	Key      string    `bson:"_id"`
	Value    string    `bson:"value"`
	ExpireAt time.Time `bson:"expireAt"`
}

// MongoCache stores entries in a collection with a TTL index on expireAt.
// The TTL monitor runs about once a minute, so Get also checks expiry itself.
type MongoCache struct {
	collection *mongo.Collection
}

func NewMongoCache(db *mongo.Database, collection string) *MongoCache {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MongoCache{collection: db.Collection(collection)}
}

// EnsureIndexes creates the TTL index. Call during startup.
func (c *MongoCache) EnsureIndexes(ctx context.Context) error {
	_, err := c.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expireAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func (c *MongoCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var e mongoEntry
	filter := bson.M{"_id": key, "expireAt": bson.M{"$gt": time.Now().UTC()}}
	if err := c.collection.FindOne(ctx, filter).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(e.Value), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *MongoCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := mongoEntry{Key: key, Value: string(data), ExpireAt: time.Now().UTC().Add(ttl)}
	_, err = c.collection.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
	return err
}

func (c *MongoCache) Delete(ctx context.Context, key string) error {
	_, err := c.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (c *MongoCache) DeletePattern(ctx context.Context, pattern string) error {
	_, err := c.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$regex": GlobToRegex(pattern)}})
	return err
}

// GlobToRegex converts a '*' glob into an anchored regular expression.
func GlobToRegex(pattern string) string {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return "^" + strings.Join(parts, ".*") + "$"
}
