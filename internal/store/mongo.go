package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/BartekS5/marketsync/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the Store backed by a live database.
type Mongo struct {
	DB    *mongo.Database
	label string
}

func NewMongo(db *mongo.Database, label string) *Mongo {
	return &Mongo{DB: db, label: label}
}

func (m *Mongo) Label() string {
	return m.label
}

// Exists uses listCollections with a name filter, which never creates the
// collection.
func (m *Mongo) Exists(ctx context.Context, collection string) (bool, error) {
	names, err := m.DB.ListCollectionNames(ctx, bson.D{{Key: "name", Value: collection}})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	return len(names) > 0, nil
}

func (m *Mongo) Count(ctx context.Context, collection string) (int64, error) {
	n, err := m.DB.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (m *Mongo) Scan(ctx context.Context, collection string, batchSize int, fn func(batch []bson.Raw) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	findOpts := options.Find().SetBatchSize(int32(batchSize))
	cursor, err := m.DB.Collection(collection).Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return fmt.Errorf("find: %w", err)
	}
	defer cursor.Close(ctx)

	batch := make([]bson.Raw, 0, batchSize)
	for cursor.Next(ctx) {
		// cursor.Current is reused by the driver on the next call
		doc := make(bson.Raw, len(cursor.Current))
		copy(doc, cursor.Current)
		batch = append(batch, doc)

		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]bson.Raw, 0, batchSize)
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("read cursor: %w", err)
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func (m *Mongo) DeleteAll(ctx context.Context, collection string) (int64, error) {
	res, err := m.DB.Collection(collection).DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) InsertUnordered(ctx context.Context, collection string, docs []bson.Raw) (InsertResult, error) {
	if len(docs) == 0 {
		return InsertResult{}, nil
	}

	batch := make([]interface{}, len(docs))
	for i, d := range docs {
		batch[i] = d
	}

	_, err := m.DB.Collection(collection).InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
	res, err := insertOutcome(len(docs), err)
	if len(res.Failures) > 0 {
		logger.Debugf("Unordered insert into %s: %d of %d documents rejected", collection, len(res.Failures), len(docs))
	}
	return res, err
}

// insertOutcome turns the InsertMany error into per-document failures. A
// write concern error on top of them still fails the call, but the
// documents the server applied are counted.
func insertOutcome(n int, err error) (InsertResult, error) {
	if err == nil {
		return InsertResult{Inserted: n}, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || (len(bwe.WriteErrors) == 0 && bwe.WriteConcernError == nil) {
		return InsertResult{}, fmt.Errorf("insert documents: %w", err)
	}

	res := InsertResult{Inserted: n - len(bwe.WriteErrors)}
	for _, we := range bwe.WriteErrors {
		res.Failures = append(res.Failures, DocFailure{Index: we.Index, Code: we.Code, Message: we.Message})
	}
	if bwe.WriteConcernError != nil {
		return res, fmt.Errorf("insert documents: write concern not satisfied: %w", err)
	}
	return res, nil
}

// CreateLike copies the parts of template that renameCollection with
// dropTarget would otherwise discard.
func (m *Mongo) CreateLike(ctx context.Context, collection, template string) error {
	specs, err := m.DB.ListCollectionSpecifications(ctx, bson.D{{Key: "name", Value: template}})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if len(specs) == 0 {
		return nil
	}

	create := bson.D{{Key: "create", Value: collection}}
	for _, key := range []string{"validator", "validationLevel", "validationAction", "collation"} {
		if v, err := specs[0].Options.LookupErr(key); err == nil {
			create = append(create, bson.E{Key: key, Value: v})
		}
	}
	if err := m.DB.RunCommand(ctx, create).Err(); err != nil {
		return fmt.Errorf("create %s: %w", collection, err)
	}

	cursor, err := m.DB.Collection(template).Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("list indexes of %s: %w", template, err)
	}
	defer cursor.Close(ctx)

	var indexes bson.A
	for cursor.Next(ctx) {
		if name, _ := cursor.Current.Lookup("name").StringValueOK(); name == "_id_" {
			continue
		}
		if _, err := cursor.Current.LookupErr("clustered"); err == nil {
			continue
		}
		elems, err := cursor.Current.Elements()
		if err != nil {
			return fmt.Errorf("read index of %s: %w", template, err)
		}
		spec := bson.D{}
		for _, e := range elems {
			if k := e.Key(); k == "v" || k == "ns" {
				continue
			}
			spec = append(spec, bson.E{Key: e.Key(), Value: e.Value()})
		}
		// cursor.Current is reused, so the spec is encoded before moving on
		raw, err := bson.Marshal(spec)
		if err != nil {
			return fmt.Errorf("encode index of %s: %w", template, err)
		}
		indexes = append(indexes, bson.Raw(raw))
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("list indexes of %s: %w", template, err)
	}
	if len(indexes) == 0 {
		return nil
	}

	cmd := bson.D{{Key: "createIndexes", Value: collection}, {Key: "indexes", Value: indexes}}
	if err := m.DB.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("create indexes on %s: %w", collection, err)
	}
	logger.Debugf("Created %s with %d indexes of %s", collection, len(indexes), template)
	return nil
}

// Rename runs renameCollection against the admin database with dropTarget,
// so the swap is a single server-side operation.
func (m *Mongo) Rename(ctx context.Context, from, to string) error {
	cmd := bson.D{
		{Key: "renameCollection", Value: m.DB.Name() + "." + from},
		{Key: "to", Value: m.DB.Name() + "." + to},
		{Key: "dropTarget", Value: true},
	}
	if err := m.DB.Client().Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}
	return nil
}

func (m *Mongo) Drop(ctx context.Context, collection string) error {
	if err := m.DB.Collection(collection).Drop(ctx); err != nil {
		return fmt.Errorf("drop %s: %w", collection, err)
	}
	return nil
}
