// Package mongostore keeps weeks in a MongoDB collection, one document per
// owner and week, with the document path as its _id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/codec"
	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/dmitrijs2005/weeklog/internal/remote"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const weeksCollectionName = "weeks"

var weekIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "isoYear", Value: -1}, {Key: "isoWeek", Value: -1}},
		Options: options.Index().SetName("OwnerIsoWeek"),
	},
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ remote.Store = (*Store)(nil)

// withTransaction runs body inside a multi-document transaction. Tests
// replace it because mock deployments do not support sessions.
var withTransaction = func(ctx context.Context, client *mongo.Client, body func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, body(sc)
	})
	return err
}

// Connect dials uri, verifies the connection and prepares the weeks
// collection of database. timeout bounds every operation of the client.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	opts := options.Client().ApplyURI(uri).SetTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", common.ErrRemoteUnavailable, err)
	}

	s := New(client, client.Database(database))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{client: client, coll: db.Collection(weeksCollectionName)}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.coll.Indexes().CreateMany(ctx, weekIndexes); err != nil {
		return fmt.Errorf("%w: create indexes: %w", common.ErrRemoteUnavailable, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path remote.DocumentPath) (*codec.StoredDocument, error) {
	doc, err := s.find(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, common.ErrorNotFound
	}
	return doc, nil
}

func (s *Store) RunTransaction(ctx context.Context, path remote.DocumentPath, fn remote.TxFunc) error {
	var fnErr error

	err := withTransaction(ctx, s.client, func(ctx context.Context) error {
		existing, err := s.find(ctx, path)
		if err != nil {
			return err
		}

		doc, err := fn(ctx, existing)
		if err != nil {
			fnErr = err
			return err
		}
		if doc == nil {
			return nil
		}

		_, err = s.coll.UpdateOne(ctx,
			bson.M{"_id": path.String()},
			generateUpdate(*doc),
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("%w: write %s: %w", common.ErrRemoteUnavailable, path, err)
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case fnErr != nil && errors.Is(err, fnErr):
		return fnErr
	case errors.Is(err, common.ErrRemoteUnavailable):
		return err
	default:
		return fmt.Errorf("%w: transaction %s: %w", common.ErrRemoteUnavailable, path, err)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// find returns nil without error when the document does not exist.
func (s *Store) find(ctx context.Context, path remote.DocumentPath) (*codec.StoredDocument, error) {
	var doc weekDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": path.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrRemoteUnavailable, path, err)
	}
	return doc.toStored(), nil
}
