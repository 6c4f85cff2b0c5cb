// Package mongostore implements the repositories on MongoDB. Orders are
// recorded in multi-document transactions, so the server must be a replica
// set member.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talent-hunters/bookportal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPingTimeout = 10 * time.Second

	usersCollection     = "users"
	booksCollection     = "books"
	ordersCollection    = "orderedbooks"
	soldOutCollection   = "soldoutbooks"
	requestsCollection  = "requestedbooks"
	donationsCollection = "donatebooks"
	classesCollection   = "classes"
	subjectsCollection  = "subjects"
)

// Store owns the client and database handle shared by the repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// Open connects to MongoDB and verifies the connection.
func Open(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("mongo uri is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, errors.New("mongo database is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// email index is what rejects concurrent duplicate registrations.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "accountType", Value: 1}}},
		},
		booksCollection: {
			{Keys: bson.D{{Key: "grade", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "bookid", Value: 1}}},
		},
	}
	for name, indexes := range models {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Users returns the user repository backed by the users collection.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s, coll: s.db.Collection(usersCollection)}
}

// Books returns the book repository backed by the books collection.
func (s *Store) Books() *BookRepository {
	return &BookRepository{s: s, coll: s.db.Collection(booksCollection)}
}

// Ledger returns the repository for the ownership logs.
func (s *Store) Ledger() *LedgerRepository {
	return &LedgerRepository{s: s}
}

// Catalog returns the class and subject repository.
func (s *Store) Catalog() *CatalogRepository {
	return &CatalogRepository{
		classes:  s.db.Collection(classesCollection),
		subjects: s.db.Collection(subjectsCollection),
	}
}

func newID() string {
	return uuid.NewString()
}

var byCreation = bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}

// findAll decodes every document matching filter into out.
func findAll(ctx context.Context, coll *mongo.Collection, filter any, out any, opts ...*options.FindOptions) error {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}
