package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"igcrawler/pkg/config"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
)

const duplicateKeyCode = 11000

// MongoArchive stores posts as documents with a unique index on postid
type MongoArchive struct {
	client *mongo.Client
	posts  *mongo.Collection
	logger logger.Logger
}

// OpenMongo connects, pings and ensures the postid index
func OpenMongo(ctx context.Context, cfg config.MongoConfig, log logger.Logger) (*MongoArchive, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	a := &MongoArchive{
		client: client,
		posts:  client.Database(cfg.Database).Collection(cfg.Collection),
		logger: log,
	}

	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "postid", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := a.posts.Indexes().CreateOne(ctx, index); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create postid index: %w", err)
	}

	log.InfoWithFields("Archive opened", map[string]interface{}{
		"database":   cfg.Database,
		"collection": cfg.Collection,
	})
	return a, nil
}

// IDs projects the postid field of every document
func (a *MongoArchive) IDs(ctx context.Context) (map[string]struct{}, error) {
	opts := options.Find().SetProjection(bson.M{"postid": 1, "_id": 0})
	cursor, err := a.posts.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query post ids: %w", err)
	}
	defer cursor.Close(ctx)

	type idOnly struct {
		ID string `bson:"postid"`
	}

	ids := make(map[string]struct{})
	for cursor.Next(ctx) {
		var doc idOnly
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode post id: %w", err)
		}
		ids[doc.ID] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Append inserts posts unordered; duplicate postids are ignored
func (a *MongoArchive) Append(ctx context.Context, posts []models.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(posts))
	for i, p := range posts {
		docs[i] = p
	}

	written := 0
	res, err := a.posts.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	switch {
	case err == nil:
		written = len(res.InsertedIDs)
	case onlyDuplicates(err):
		var bwe mongo.BulkWriteException
		errors.As(err, &bwe)
		written = len(posts) - len(bwe.WriteErrors)
	default:
		return 0, fmt.Errorf("failed to insert posts: %w", err)
	}

	a.logger.InfoWithFields("Archive appended", map[string]interface{}{
		"written":    written,
		"duplicates": len(posts) - written,
	})
	return written, nil
}

func onlyDuplicates(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return false
		}
	}
	return true
}

// Close disconnects the client
func (a *MongoArchive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
