// Package bridge implements the JSON language binding: an action string
// plus a JSON body in, a {success, data, error} envelope out, delegating
// every action to the dispatch core. Grounded on the teacher's handler
// layer (database/database.go dispatching by db_type, generalized here to
// dispatching by action string) and on the tagged-union wire scheme
// cache/codec.go already established for this project.
package bridge

import (
	"context"
	"encoding/json"

	"github.com/forbearing/quickdb/adapter"
	"github.com/forbearing/quickdb/dispatch"
	"github.com/forbearing/quickdb/logger"
	"github.com/forbearing/quickdb/manager"
	"github.com/forbearing/quickdb/quickdberr"
	"github.com/forbearing/quickdb/registry"
	"github.com/forbearing/quickdb/schema"
)

// Bridge holds the dispatch core and manager a Dispatch call runs
// against. Tests build their own; the package-level Default wraps the
// process-wide singletons.
type Bridge struct {
	core *dispatch.Core
	mgr  *manager.Manager
}

// New builds a Bridge over core/mgr.
func New(core *dispatch.Core, mgr *manager.Manager) *Bridge {
	return &Bridge{core: core, mgr: mgr}
}

// Default is the process-wide bridge over dispatch.Default/manager.Default.
var Default = New(dispatch.Default, manager.Default)

// Dispatch decodes body as a request for action, runs it, and returns the
// {success, data, error} envelope as JSON. Dispatch never returns a Go
// error for application-level failures (an unregistered collection, a
// connection error, ...) — those are reported inside the envelope, and so
// is a body that isn't valid JSON. The returned error is non-nil only when
// the envelope itself cannot be encoded.
func (b *Bridge) Dispatch(action string, body []byte) ([]byte, error) {
	var req request
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return errResponse(quickdberr.Serialization(err, "decode bridge request body"))
		}
	}

	logger.Bridge.Debugw("dispatching bridge action", "action", action, "table", req.Table, "alias", req.Alias)

	data, err := b.handle(context.Background(), action, &req)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(data)
}

// Dispatch delegates to Default, the convenience entry point most callers
// (cmd/quickdb-bench, external language bindings) use.
func Dispatch(action string, body []byte) ([]byte, error) {
	return Default.Dispatch(action, body)
}

func (b *Bridge) handle(ctx context.Context, action string, req *request) (any, error) {
	switch action {
	case "create":
		return b.create(ctx, req)
	case "find":
		return b.find(ctx, req)
	case "find_with_groups":
		return b.findWithGroups(ctx, req)
	case "find_by_id":
		return b.findByID(ctx, req)
	case "count":
		return b.count(ctx, req)
	case "delete":
		return b.delete(ctx, req)
	case "delete_by_id":
		return b.deleteByID(ctx, req)
	case "update":
		return b.update(ctx, req)
	case "update_by_id":
		return b.updateByID(ctx, req)
	case "register_model":
		return b.registerModel(req)
	case "create_table":
		return b.createTable(ctx, req)
	case "drop_table":
		return b.dropTable(ctx, req)
	case "add_database":
		return b.addDatabase(ctx, req)
	default:
		return nil, quickdberr.Config("unknown bridge action %q", action)
	}
}

func (b *Bridge) create(ctx context.Context, req *request) (any, error) {
	data, err := decodeDataMap(req.Data)
	if err != nil {
		return nil, err
	}
	row, err := b.core.Create(ctx, req.Alias, req.Table, data)
	if err != nil {
		return nil, err
	}
	return rowToTagged(row)
}

func (b *Bridge) find(ctx context.Context, req *request) (any, error) {
	conditions, err := decodeConditions(req.Conditions)
	if err != nil {
		return nil, err
	}
	rows, err := b.core.Find(ctx, req.Alias, req.Table, conditions, req.Options.toOptions(conditions))
	if err != nil {
		return nil, err
	}
	return rowsToTagged(rows)
}

// findWithGroups accepts the same flat condition list as find and lowers
// it here to an implicit-AND condition group (opts.Groups(), which is
// query.FromConditions) before calling FindWithGroups.
func (b *Bridge) findWithGroups(ctx context.Context, req *request) (any, error) {
	conditions, err := decodeConditions(req.Conditions)
	if err != nil {
		return nil, err
	}
	opts := req.Options.toOptions(conditions)
	rows, err := b.core.FindWithGroups(ctx, req.Alias, req.Table, opts.Groups(), opts)
	if err != nil {
		return nil, err
	}
	return rowsToTagged(rows)
}

func (b *Bridge) findByID(ctx context.Context, req *request) (any, error) {
	row, found, err := b.core.FindByID(ctx, req.Alias, req.Table, req.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return rowToTagged(row)
}

func (b *Bridge) count(ctx context.Context, req *request) (any, error) {
	conditions, err := decodeConditions(req.Conditions)
	if err != nil {
		return nil, err
	}
	return b.core.Count(ctx, req.Alias, req.Table, conditions)
}

func (b *Bridge) delete(ctx context.Context, req *request) (any, error) {
	conditions, err := decodeConditions(req.Conditions)
	if err != nil {
		return nil, err
	}
	return b.core.Delete(ctx, req.Alias, req.Table, conditions)
}

func (b *Bridge) deleteByID(ctx context.Context, req *request) (any, error) {
	return b.core.DeleteByID(ctx, req.Alias, req.Table, req.ID)
}

func (b *Bridge) update(ctx context.Context, req *request) (any, error) {
	conditions, err := decodeConditions(req.Conditions)
	if err != nil {
		return nil, err
	}
	data, err := decodeDataMap(req.Data)
	if err != nil {
		return nil, err
	}
	return b.core.Update(ctx, req.Alias, req.Table, conditions, data)
}

func (b *Bridge) updateByID(ctx context.Context, req *request) (any, error) {
	data, err := decodeDataMap(req.Data)
	if err != nil {
		return nil, err
	}
	return b.core.UpdateByID(ctx, req.Alias, req.Table, req.ID, data)
}

func (b *Bridge) registerModel(req *request) (any, error) {
	meta := schema.NewModelMeta(req.Table)
	for name, spec := range req.Fields {
		meta.AddField(name, spec.toFieldDefinition())
	}
	for _, idx := range req.Indexes {
		meta.AddIndex(schema.IndexDefinition{Name: idx.Name, Fields: idx.Fields, Unique: idx.Unique})
	}
	if err := registry.RegisterModel(meta); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bridge) createTable(ctx context.Context, req *request) (any, error) {
	p, err := b.mgr.Resolve(req.Alias)
	if err != nil {
		return nil, err
	}
	if err := registry.EnsureTableAndIndexes(ctx, p.Adapter(), req.Table); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bridge) dropTable(ctx context.Context, req *request) (any, error) {
	p, err := b.mgr.Resolve(req.Alias)
	if err != nil {
		return nil, err
	}
	if _, err := p.Submit(ctx, func(ctx context.Context, a adapter.Adapter) (any, error) {
		return nil, a.DropTable(ctx, req.Table)
	}); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bridge) addDatabase(ctx context.Context, req *request) (any, error) {
	if req.Database == nil {
		return nil, quickdberr.Config("add_database requires a \"database\" object")
	}
	cfg := req.Database.toDatabaseConfig()
	if err := b.mgr.AddDatabase(ctx, cfg); err != nil {
		return nil, err
	}
	return true, nil
}
