package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

// RecordStore keeps each collection kind in its own MongoDB collection.
// Documents carry their owner uid, so one collection serves every identity.
type RecordStore struct {
	db *mongo.Database
}

func NewRecordStore(db *mongo.Database) *RecordStore {
	return &RecordStore{db: db}
}

type mongoRecord struct {
	ID        string             `bson:"_id"`
	Owner     string             `bson:"owner"`
	Arrival   primitive.ObjectID `bson:"arrival"`
	Data      bson.M             `bson:"data"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (r *mongoRecord) document() *ports.Document {
	fields := make(map[string]any, len(r.Data))
	for k, v := range r.Data {
		fields[k] = v
	}
	return &ports.Document{ID: r.ID, Fields: fields, CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()}
}

func (s *RecordStore) col(path domain.CollectionPath) *mongo.Collection {
	return s.db.Collection(string(path.Collection))
}

// Insert stores a new record. The arrival ObjectID fixes its list position.
func (s *RecordStore) Insert(ctx context.Context, path domain.CollectionPath, doc *ports.Document) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rec := mongoRecord{
		ID:        doc.ID,
		Owner:     path.UID,
		Arrival:   primitive.NewObjectID(),
		Data:      bson.M(doc.Fields),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if _, err := s.col(path).InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert %s: %w", path.Record(doc.ID), err)
	}
	return nil
}

// Merge sets individual data fields so concurrent patches of different
// fields do not overwrite each other.
func (s *RecordStore) Merge(ctx context.Context, path domain.CollectionPath, id string, fields map[string]any, updatedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": updatedAt}
	for k, v := range fields {
		set["data."+k] = v
	}
	res, err := s.col(path).UpdateOne(ctx, bson.M{"_id": id, "owner": path.UID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s: %w", path.Record(id), err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *RecordStore) Remove(ctx context.Context, path domain.CollectionPath, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := s.col(path).DeleteOne(ctx, bson.M{"_id": id, "owner": path.UID}); err != nil {
		return fmt.Errorf("delete %s: %w", path.Record(id), err)
	}
	return nil
}

func (s *RecordStore) Find(ctx context.Context, path domain.CollectionPath, id string) (*ports.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec mongoRecord
	err := s.col(path).FindOne(ctx, bson.M{"_id": id, "owner": path.UID}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", path.Record(id), err)
	}
	return rec.document(), nil
}

func (s *RecordStore) List(ctx context.Context, path domain.CollectionPath) ([]*ports.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "arrival", Value: 1}})
	cursor, err := s.col(path).Find(ctx, bson.M{"owner": path.UID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	defer cursor.Close(ctx)

	var recs []mongoRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	out := make([]*ports.Document, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].document())
	}
	return out, nil
}

// RemoveOwner deletes the identity's records from every collection.
func (s *RecordStore) RemoveOwner(ctx context.Context, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for _, name := range domain.Collections {
		if _, err := s.db.Collection(string(name)).DeleteMany(ctx, bson.M{"owner": uid}); err != nil {
			return fmt.Errorf("purge %s for %s: %w", name, uid, err)
		}
	}
	return nil
}

// EnsureIndexes creates the owner/arrival index on every record collection.
func (s *RecordStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, name := range domain.Collections {
		_, err := s.db.Collection(string(name)).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "owner", Value: 1}, {Key: "arrival", Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
	}
	return nil
}
