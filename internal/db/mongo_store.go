package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"yuva/server/internal/utils"
)

// MongoStore implements DocumentStore on a MongoDB database. Live queries use
// change streams, so Subscribe needs a replica set or sharded cluster.
type MongoStore struct {
	db     *mongo.Database
	logger *zap.Logger
	now    func() time.Time
}

func NewMongoStore(database *mongo.Database, logger *zap.Logger) *MongoStore {
	return &MongoStore{db: database, logger: logger, now: time.Now}
}

func (s *MongoStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	coll := s.db.Collection(collection)
	var id string
	err := Try(func() error {
		id = utils.NewSixID().String()
		doc := s.resolve(fields)
		doc["_id"] = id
		_, err := coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create document in %s: %w", collection, err)
	}
	return id, nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	doc := s.resolve(fields)
	doc["_id"] = id
	_, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) GetByID(ctx context.Context, collection, id string) (*Document, error) {
	var filter bson.M
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		// Documents imported from elsewhere may carry ObjectID keys.
		filter = bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	} else {
		filter = bson.M{"_id": id}
	}

	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, filter).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	doc := toDocument(raw)
	return &doc, nil
}

func (s *MongoStore) Subscribe(ctx context.Context, collection string, q Query, onSnapshot func(Snapshot), onError func(error)) (Subscription, error) {
	coll := s.db.Collection(collection)
	subCtx, cancel := context.WithCancel(ctx)

	// Open the stream before the first read so no change between the two is lost.
	stream, err := coll.Watch(subCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", collection, err)
	}

	sub := &mongoSubscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer stream.Close(context.Background())

		for {
			snap, err := s.find(subCtx, coll, q)
			if subCtx.Err() != nil {
				return
			}
			if err != nil {
				onError(err)
				return
			}
			onSnapshot(snap)

			if !stream.Next(subCtx) {
				if subCtx.Err() != nil {
					return
				}
				err := stream.Err()
				if err == nil {
					err = fmt.Errorf("change stream on %s closed", collection)
				}
				s.logger.Warn("Subscription stream ended", zap.String("collection", collection), zap.Error(err))
				onError(err)
				return
			}
			// Collapse a burst of queued changes into one snapshot.
			for stream.RemainingBatchLength() > 0 && stream.Next(subCtx) {
			}
		}
	}()

	return sub, nil
}

func (s *MongoStore) find(ctx context.Context, coll *mongo.Collection, q Query) (Snapshot, error) {
	filter := bson.D{}
	for _, c := range q.Where {
		filter = append(filter, bson.E{Key: c.Field, Value: c.Value})
	}
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", coll.Name(), err)
	}
	snap := make(Snapshot, 0, len(raw))
	for _, m := range raw {
		snap = append(snap, toDocument(m))
	}
	return snap, nil
}

func (s *MongoStore) resolve(fields map[string]interface{}) bson.M {
	doc := make(bson.M, len(fields)+1)
	now := s.now().UTC()
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			doc[k] = now
			continue
		}
		doc[k] = v
	}
	return doc
}

func toDocument(m bson.M) Document {
	doc := Document{Fields: make(map[string]interface{}, len(m))}
	for k, v := range m {
		if k == "_id" {
			switch id := v.(type) {
			case string:
				doc.ID = id
			case primitive.ObjectID:
				doc.ID = id.Hex()
			default:
				doc.ID = fmt.Sprint(id)
			}
			continue
		}
		doc.Fields[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC()
	case primitive.ObjectID:
		return t.Hex()
	default:
		return v
	}
}

type mongoSubscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

func (m *mongoSubscription) Cancel() {
	m.once.Do(m.cancel)
	<-m.done
}
