package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-while/go-pugblog/internal/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps one document per post in a MongoDB collection
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

type mongoPost struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Body      string             `bson:"body"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d *mongoPost) toModel() *models.Post {
	return &models.Post{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Body:      d.Body,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// OpenMongo connects to uri and uses database.collection for posts
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	log.Info().Str("database", database).Str("collection", collection).Msg("connected to mongo")

	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
		// BSON dates have millisecond precision
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}, nil
}

func mongoObjectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil || oid.Hex() != id {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func (m *MongoStore) FindAll(ctx context.Context) ([]*models.Post, error) {
	// ObjectIDs grow with insertion time
	cursor, err := m.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	var docs []mongoPost
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}

	posts := make([]*models.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toModel())
	}
	return posts, nil
}

func (m *MongoStore) FindByID(ctx context.Context, id string) (*models.Post, error) {
	oid, ok := mongoObjectID(id)
	if !ok {
		return nil, ErrPostNotFound
	}

	var doc mongoPost
	if err := m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post by ID %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (m *MongoStore) Insert(ctx context.Context, p *models.Post) error {
	now := m.now()
	doc := mongoPost{
		Title:     p.Title,
		Body:      p.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := m.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}

	p.ID = oid.Hex()
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (m *MongoStore) Update(ctx context.Context, id, title, body string) (*models.Post, error) {
	oid, ok := mongoObjectID(id)
	if !ok {
		return nil, ErrPostNotFound
	}

	update := bson.M{"$set": bson.M{
		"title":      title,
		"body":       body,
		"updated_at": m.now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoPost
	if err := m.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to update post ID %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	oid, ok := mongoObjectID(id)
	if !ok {
		return ErrPostNotFound
	}

	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete post ID %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
