// Package mongo implementa el backend de documentos sobre MongoDB.
// Cada colección del gateway ("care_grants", "health_data/u1") es una
// colección Mongo con los "/" reemplazados por "."; el id del registro es _id.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"medicare-now/internal/gateway"
)

var _ gateway.Backend = (*Documents)(nil)
var _ gateway.Migrator = (*Documents)(nil)

type Documents struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect abre el cliente y verifica conectividad con un ping.
func Connect(ctx context.Context, uri, database string) (*Documents, error) {
	if strings.TrimSpace(uri) == "" || strings.TrimSpace(database) == "" {
		return nil, errors.New("mongo: uri and database are required")
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(3 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: connect mongo: %v", gateway.ErrBackendUnavailable, err)
	}

	d := &Documents{client: client, db: client.Database(database)}
	if err := d.Ping(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Documents) Name() string { return "mongo" }

// Migrate crea los índices de los campos por los que filtran los repositorios.
func (d *Documents) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"sessions": {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		"recomandari": {
			{Keys: bson.D{{Key: "pacientID", Value: 1}}},
			{Keys: bson.D{{Key: "medicID", Value: 1}}},
		},
		"care_grants": {
			{Keys: bson.D{{Key: "patientId", Value: 1}}},
			{Keys: bson.D{{Key: "medicId", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := d.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, mapErr(err))
		}
	}
	return nil
}

func (d *Documents) Put(ctx context.Context, collection, id string, doc gateway.Document) error {
	_, err := d.coll(collection).ReplaceOne(ctx,
		bson.M{"_id": id},
		toBSON(id, doc),
		options.Replace().SetUpsert(true),
	)
	return mapErr(err)
}

// Create usa el índice único de _id: InsertOne falla con duplicate key si ya existe.
func (d *Documents) Create(ctx context.Context, collection, id string, doc gateway.Document) error {
	_, err := d.coll(collection).InsertOne(ctx, toBSON(id, doc))
	return mapErr(err)
}

func (d *Documents) Get(ctx context.Context, collection, id string) (gateway.Document, error) {
	raw, err := d.coll(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		return nil, mapErr(err)
	}
	_, doc, err := fromRaw(raw)
	return doc, err
}

func (d *Documents) Delete(ctx context.Context, collection, id string) error {
	_, err := d.coll(collection).DeleteOne(ctx, bson.M{"_id": id})
	return mapErr(err)
}

func (d *Documents) List(ctx context.Context, collection string, q gateway.Query) ([]gateway.Entry, error) {
	filter := bson.M{}
	if strings.TrimSpace(q.Field) != "" {
		filter[q.Field] = q.Equals
	}

	dir := 1
	if q.Descending {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: dir}})
	// con filtro el límite va después de Matches: la igualdad contra arrays trae de más
	if q.Limit > 0 && strings.TrimSpace(q.Field) == "" {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := d.coll(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cur.Close(ctx)

	out := []gateway.Entry{}
	for cur.Next(ctx) {
		id, doc, err := fromRaw(cur.Current)
		if err != nil {
			return nil, err
		}
		// en Mongo la igualdad contra un array matchea por elemento
		if !q.Matches(doc) {
			continue
		}
		out = append(out, gateway.Entry{ID: id, Value: doc})
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	if err := cur.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (d *Documents) Ping(ctx context.Context) error {
	return mapErr(d.client.Ping(ctx, nil))
}

func (d *Documents) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func (d *Documents) coll(collection string) *mongo.Collection {
	return d.db.Collection(collectionName(collection))
}

func toBSON(id string, doc gateway.Document) bson.M {
	body := bson.M{}
	for k, v := range doc {
		body[k] = v
	}
	body["_id"] = id
	return body
}

func collectionName(collection string) string {
	return strings.ReplaceAll(collection, "/", ".")
}

// fromRaw pasa de BSON a la forma JSON común (Extended JSON relajado).
func fromRaw(raw bson.Raw) (string, gateway.Document, error) {
	id, _ := raw.Lookup("_id").StringValueOK()

	b, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return "", nil, err
	}
	var doc gateway.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return "", nil, err
	}
	delete(doc, "_id")
	return id, doc, nil
}

// Códigos del servidor para documentos que no se pueden guardar.
const (
	codeBadValue                = 2
	codeDollarPrefixedFieldName = 52
)

func mapErr(err error) error {
	var srvErr mongo.ServerError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return gateway.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: duplicate key: %v", gateway.ErrConflict, err)
	case errors.As(err, &srvErr) && (srvErr.HasErrorCode(codeBadValue) || srvErr.HasErrorCode(codeDollarPrefixedFieldName)),
		strings.Contains(err.Error(), "keys beginning with '$'"):
		return fmt.Errorf("%w: %v", gateway.ErrValidation, err)
	case mongo.IsNetworkError(err),
		mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", gateway.ErrBackendUnavailable, err)
	default:
		return err
	}
}
