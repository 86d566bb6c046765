// Package idgen implements the strategy-dispatched identifier generator:
// auto-increment (a no-op signaling the driver assigns the id),
// UUID v4, Snowflake, Mongo ObjectId, and named Custom generators.
package idgen

import (
	"strconv"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/forbearing/quickdb/dbconfig"
	"github.com/forbearing/quickdb/quickdberr"
)

// Custom is a registered named id-generation strategy, e.g. "xid"/"ksuid".
type Custom interface {
	Generate() (string, error)
}

var customGenerators = map[string]Custom{}

// RegisterCustom registers a Custom generator under name, overwriting any
// prior registration. Call during package init for built-ins ("xid",
// "ksuid") or from application code for bespoke strategies.
func RegisterCustom(name string, gen Custom) {
	customGenerators[name] = gen
}

// Generator allocates ids for one alias per its configured IDStrategy.
type Generator struct {
	strategy  dbconfig.IDStrategy
	snowflake *Snowflake
}

// New builds a Generator for strategy, constructing a Snowflake instance
// up front when strategy.Kind is IDSnowflake.
func New(strategy dbconfig.IDStrategy) (*Generator, error) {
	g := &Generator{strategy: strategy}
	if strategy.Kind == dbconfig.IDSnowflake {
		sf, err := NewSnowflake(strategy.DatacenterID, strategy.MachineID)
		if err != nil {
			return nil, err
		}
		g.snowflake = sf
	}
	if strategy.Kind == dbconfig.IDCustom {
		if _, ok := customGenerators[strategy.CustomName]; !ok {
			return nil, quickdberr.Config("no custom id generator registered under name %q", strategy.CustomName)
		}
	}
	return g, nil
}

// Kind reports the generator's configured strategy kind.
func (g *Generator) Kind() dbconfig.IDStrategyKind { return g.strategy.Kind }

// Next allocates the next id as a string (empty string for AutoIncrement,
// meaning "let the driver assign one").
func (g *Generator) Next() (string, error) {
	switch g.strategy.Kind {
	case dbconfig.IDAutoIncrement:
		return "", nil
	case dbconfig.IDUuid:
		return uuid.New().String(), nil
	case dbconfig.IDSnowflake:
		id, err := g.snowflake.Next()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(id, 10), nil
	case dbconfig.IDObjectId:
		return bson.NewObjectID().Hex(), nil
	case dbconfig.IDCustom:
		gen, ok := customGenerators[g.strategy.CustomName]
		if !ok {
			return "", quickdberr.Config("no custom id generator registered under name %q", g.strategy.CustomName)
		}
		return gen.Generate()
	default:
		return "", quickdberr.Config("unknown id strategy %q", g.strategy.Kind)
	}
}
