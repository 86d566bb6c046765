// Package mongo implements adapter.Adapter over go.mongodb.org/mongo-driver,
// the document-store counterpart to the SQL adapters. Conditions compile to
// BSON filters (filter.go) instead of SQL text; IDAutoIncrement is emulated
// via idgen.MongoSequence since Mongo has no native auto-increment.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/forbearing/quickdb/adapter"
	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/idgen"
	"github.com/forbearing/quickdb/logger"
	"github.com/forbearing/quickdb/query"
	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/qvalue"
	"github.com/forbearing/quickdb/schema"
)

// Adapter is the MongoDB backend.
type Adapter struct {
	cfg    adapter.Config
	client *mongo.Client
	db     *mongo.Database
	seq    *idgen.MongoSequence
}

// Open connects to cfg.DB's HostConn, honoring DirectConnection and the
// optional TLS/ZSTD wire-compression knobs.
func Open(ctx context.Context, cfg adapter.Config) (*Adapter, error) {
	if cfg.DB.DBType != dbconfig.MongoDB {
		return nil, quickdberr.Config("mongo adapter given db_type %q", cfg.DB.DBType)
	}
	h := cfg.DB.Host
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d/%s", h.User, h.Password, h.Host, h.Port, h.Database)
	opts := options.Client().ApplyURI(uri).SetDirect(h.DirectConnection)
	if cfg.DB.Pool.MaxConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.DB.Pool.MaxConns))
	}
	if cfg.DB.Pool.MinConns > 0 {
		opts.SetMinPoolSize(uint64(cfg.DB.Pool.MinConns))
	}
	if cfg.DB.Zstd != nil && cfg.DB.Zstd.Enabled {
		opts.SetCompressors([]string{"zstd"})
		opts.SetZstdLevel(cfg.DB.Zstd.Level)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, quickdberr.Connection(err, "connect mongo for alias %q", cfg.Alias)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, quickdberr.Connection(err, "ping mongo for alias %q", cfg.Alias)
	}
	db := client.Database(h.Database)
	logger.Adapter.Infow("connected to mongo", "alias", cfg.Alias, "host", h.Host, "database", h.Database)
	return &Adapter{
		cfg:    cfg,
		client: client,
		db:     db,
		seq:    idgen.NewMongoSequence(db.Collection("_quickdb_sequences")),
	}, nil
}

func (a *Adapter) Close() error {
	return a.client.Disconnect(context.Background())
}

func (a *Adapter) Health(ctx context.Context) error {
	return a.client.Ping(ctx, nil)
}

func (a *Adapter) GetServerVersion(ctx context.Context) (string, error) {
	var result bson.M
	cmd := bson.D{{Key: "buildInfo", Value: 1}}
	if err := a.db.RunCommand(ctx, cmd).Decode(&result); err != nil {
		return "", quickdberr.Query(err, "get mongo server version")
	}
	v, _ := result["version"].(string)
	return v, nil
}

// --- DDL: collections are schemaless; CreateTable only ensures existence. ---

func (a *Adapter) CreateTable(ctx context.Context, table string, meta *schema.ModelMeta) error {
	names, err := a.db.ListCollectionNames(ctx, bson.M{"name": table})
	if err != nil {
		return quickdberr.Query(err, "list collections for %q", table)
	}
	if len(names) > 0 {
		return nil
	}
	if err := a.db.CreateCollection(ctx, table); err != nil {
		return quickdberr.Query(err, "create collection %q", table)
	}
	return nil
}

func (a *Adapter) CreateIndex(ctx context.Context, table, name string, fields []string, unique bool) error {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	idxOpts := options.Index().SetName(name).SetUnique(unique)
	_, err := a.db.Collection(table).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: idxOpts})
	if err != nil {
		return quickdberr.Query(err, "create index %q on %q", name, table)
	}
	return nil
}

func (a *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	names, err := a.db.ListCollectionNames(ctx, bson.M{"name": table})
	if err != nil {
		return false, quickdberr.Query(err, "list collections for %q", table)
	}
	return len(names) > 0, nil
}

func (a *Adapter) DropTable(ctx context.Context, table string) error {
	if err := a.db.Collection(table).Drop(ctx); err != nil {
		return quickdberr.Query(err, "drop collection %q", table)
	}
	return nil
}

// --- CRUD ---

func (a *Adapter) assignID(ctx context.Context, table string, data map[string]qvalue.Value) error {
	if _, ok := data["id"]; ok {
		return nil
	}
	if a.cfg.DB.IDStrategy.Kind == dbconfig.IDAutoIncrement {
		n, err := a.seq.Next(ctx, table)
		if err != nil {
			return err
		}
		data["id"] = qvalue.I64(n)
		return nil
	}
	g, err := idgen.New(a.cfg.DB.IDStrategy)
	if err != nil {
		return err
	}
	id, err := g.Next()
	if err != nil {
		return err
	}
	data["id"] = qvalue.String(id)
	return nil
}

func (a *Adapter) Create(ctx context.Context, table string, data map[string]qvalue.Value, meta *schema.ModelMeta) (qvalue.Value, error) {
	if err := a.assignID(ctx, table, data); err != nil {
		return qvalue.Null(), err
	}
	doc := bson.M{}
	for k, v := range data {
		doc[k] = toBSONValue(v)
	}
	if _, err := a.db.Collection(table).InsertOne(ctx, doc); err != nil {
		return qvalue.Null(), quickdberr.Query(err, "create document in %q", table)
	}
	return qvalue.Map(mapToEntries(data)...), nil
}

func (a *Adapter) CreateMany(ctx context.Context, table string, rows []map[string]qvalue.Value, meta *schema.ModelMeta, batchSize int) ([]qvalue.Value, error) {
	if batchSize <= 0 {
		batchSize = len(rows)
	}
	out := make([]qvalue.Value, 0, len(rows))
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		docs := make([]any, 0, end-start)
		for _, row := range rows[start:end] {
			if err := a.assignID(ctx, table, row); err != nil {
				return nil, err
			}
			doc := bson.M{}
			for k, v := range row {
				doc[k] = toBSONValue(v)
			}
			docs = append(docs, doc)
		}
		if _, err := a.db.Collection(table).InsertMany(ctx, docs); err != nil {
			return nil, quickdberr.Query(err, "batch insert into %q", table)
		}
		for _, row := range rows[start:end] {
			out = append(out, qvalue.Map(mapToEntries(row)...))
		}
	}
	return out, nil
}

func (a *Adapter) FindByID(ctx context.Context, table string, id string, meta *schema.ModelMeta) (qvalue.Value, bool, error) {
	var doc bson.M
	err := a.db.Collection(table).FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return qvalue.Null(), false, nil
	}
	if err != nil {
		return qvalue.Null(), false, quickdberr.Query(err, "find_by_id in %q", table)
	}
	return qvalue.Map(mapToEntries(docToMap(doc))...), true, nil
}

func (a *Adapter) Find(ctx context.Context, table string, conditions []query.QueryCondition, opts query.Options, meta *schema.ModelMeta) ([]qvalue.Value, error) {
	return a.FindWithGroups(ctx, table, query.FromConditions(conditions), opts, meta)
}

func (a *Adapter) FindWithGroups(ctx context.Context, table string, group query.QueryConditionGroup, opts query.Options, meta *schema.ModelMeta) ([]qvalue.Value, error) {
	filter, err := compileFilter(group, meta)
	if err != nil {
		return nil, err
	}
	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		sortDoc := bson.D{}
		for _, s := range opts.Sort {
			dir := 1
			if s.Dir == query.Desc {
				dir = -1
			}
			sortDoc = append(sortDoc, bson.E{Key: s.Field, Value: dir})
		}
		findOpts.SetSort(sortDoc)
	}
	if opts.Pagination != nil {
		if opts.Pagination.Limit > 0 {
			findOpts.SetLimit(int64(opts.Pagination.Limit))
		}
		if opts.Pagination.Skip > 0 {
			findOpts.SetSkip(int64(opts.Pagination.Skip))
		}
	}
	if len(opts.Fields) > 0 {
		proj := bson.D{}
		for _, f := range opts.Fields {
			proj = append(proj, bson.E{Key: f, Value: 1})
		}
		findOpts.SetProjection(proj)
	}

	cur, err := a.db.Collection(table).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, quickdberr.Query(err, "find in %q", table)
	}
	defer cur.Close(ctx)

	var out []qvalue.Value
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, quickdberr.Query(err, "decode row in %q", table)
		}
		out = append(out, qvalue.Map(mapToEntries(docToMap(doc))...))
	}
	if err := cur.Err(); err != nil {
		return nil, quickdberr.Query(err, "iterate cursor in %q", table)
	}
	return out, nil
}

func (a *Adapter) Update(ctx context.Context, table string, conditions []query.QueryCondition, data map[string]qvalue.Value, meta *schema.ModelMeta) (int64, error) {
	filter, err := compileFilter(query.FromConditions(conditions), meta)
	if err != nil {
		return 0, err
	}
	set := bson.M{}
	for k, v := range data {
		set[k] = toBSONValue(v)
	}
	res, err := a.db.Collection(table).UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return 0, quickdberr.Query(err, "update %q", table)
	}
	return res.ModifiedCount, nil
}

func numericOf(v qvalue.Value) float64 {
	if f, ok := v.AsF64(); ok {
		return f
	}
	if i, ok := v.AsI64(); ok {
		return float64(i)
	}
	return 0
}

func (a *Adapter) UpdateWithOperations(ctx context.Context, table string, conditions []query.QueryCondition, ops []query.UpdateOperation, meta *schema.ModelMeta) (int64, error) {
	filter, err := compileFilter(query.FromConditions(conditions), meta)
	if err != nil {
		return 0, err
	}
	set := bson.M{}
	inc := bson.M{}
	mul := bson.M{}
	for _, op := range ops {
		val := toBSONValue(op.Value)
		f := numericOf(op.Value)
		switch op.Operator {
		case query.UpdateSet:
			set[op.Field] = val
		case query.UpdateIncrement:
			inc[op.Field] = val
		case query.UpdateDecrement:
			inc[op.Field] = -f
		case query.UpdateMultiply:
			mul[op.Field] = val
		case query.UpdateDivide:
			if f != 0 {
				mul[op.Field] = 1 / f
			}
		case query.UpdatePercentIncrease:
			mul[op.Field] = 1 + f/100.0
		case query.UpdatePercentDecrease:
			mul[op.Field] = 1 - f/100.0
		default:
			return 0, quickdberr.Query(nil, "unsupported update operator %q", op.Operator)
		}
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	if len(mul) > 0 {
		update["$mul"] = mul
	}
	res, err := a.db.Collection(table).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, quickdberr.Query(err, "update_with_operations %q", table)
	}
	return res.ModifiedCount, nil
}

func (a *Adapter) UpdateByID(ctx context.Context, table string, id string, data map[string]qvalue.Value, meta *schema.ModelMeta) (bool, error) {
	set := bson.M{}
	for k, v := range data {
		set[k] = toBSONValue(v)
	}
	res, err := a.db.Collection(table).UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return false, quickdberr.Query(err, "update_by_id in %q", table)
	}
	return res.ModifiedCount > 0, nil
}

func (a *Adapter) Delete(ctx context.Context, table string, conditions []query.QueryCondition) (int64, error) {
	filter, err := compileFilter(query.FromConditions(conditions), nil)
	if err != nil {
		return 0, err
	}
	res, err := a.db.Collection(table).DeleteMany(ctx, filter)
	if err != nil {
		return 0, quickdberr.Query(err, "delete from %q", table)
	}
	return res.DeletedCount, nil
}

func (a *Adapter) DeleteByID(ctx context.Context, table string, id string) (bool, error) {
	res, err := a.db.Collection(table).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return false, quickdberr.Query(err, "delete_by_id in %q", table)
	}
	return res.DeletedCount > 0, nil
}

func (a *Adapter) Count(ctx context.Context, table string, conditions []query.QueryCondition) (uint64, error) {
	filter, err := compileFilter(query.FromConditions(conditions), nil)
	if err != nil {
		return 0, err
	}
	n, err := a.db.Collection(table).CountDocuments(ctx, filter)
	if err != nil {
		return 0, quickdberr.Query(err, "count in %q", table)
	}
	return uint64(n), nil
}

// --- Stored procedures: Mongo has no server-side procedure concept. ---

func (a *Adapter) CreateStoredProcedure(ctx context.Context, name, definition string) error {
	return quickdberr.Other(nil, "mongodb does not support stored procedures")
}

func (a *Adapter) ExecuteStoredProcedure(ctx context.Context, name string, args ...any) (qvalue.Value, error) {
	return qvalue.Null(), quickdberr.Other(nil, "mongodb does not support stored procedures")
}

var _ adapter.Adapter = (*Adapter)(nil)
