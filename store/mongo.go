package store

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/stevemurr/record-gateway/record"
)

// MongoStore is backed by a single MongoDB collection. One client (and its
// connection pool) is shared by every request.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and pings the primary. It returns an error
// rather than a half-connected store when the server is unreachable.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongo")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// idFilter matches a record by identifier. Hex ids are matched as
// ObjectIDs; anything else is matched verbatim, which finds nothing for
// records this gateway created.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{record.IDField: oid}
	}
	return bson.M{record.IDField: id}
}

func (s *MongoStore) Insert(ctx context.Context, rec record.Record) (string, error) {
	oid := primitive.NewObjectID()
	doc := bson.M(rec.WithoutID())
	doc[record.IDField] = oid
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", errors.Wrap(err, "insert")
	}
	return oid.Hex(), nil
}

func (s *MongoStore) List(ctx context.Context) ([]record.Record, error) {
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrap(err, "list")
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "list")
	}
	result := make([]record.Record, 0, len(docs))
	for _, doc := range docs {
		result = append(result, fromBSONDoc(doc))
	}
	return result, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, fields record.Record) (int64, error) {
	set := bson.M(fields.WithoutID())
	filter := idFilter(id)
	if len(set) == 0 {
		// $set rejects an empty document; report the match count alone.
		n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return 0, errors.Wrap(err, "update")
		}
		return n, nil
	}
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return 0, errors.Wrap(err, "update")
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.coll.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return 0, errors.Wrap(err, "delete")
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// fromBSONDoc converts a decoded document into the plain JSON value
// universe, with ObjectIDs rendered as hex strings.
func fromBSONDoc(doc bson.M) record.Record {
	out := make(record.Record, len(doc))
	for k, v := range doc {
		out[k] = fromBSON(v)
	}
	return out
}

func fromBSON(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.M:
		return map[string]any(fromBSONDoc(val))
	case primitive.D:
		return map[string]any(fromBSONDoc(val.Map()))
	case primitive.A:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = fromBSON(e)
		}
		return out
	default:
		return v
	}
}
