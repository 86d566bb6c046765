// Package logger declares the package-level logger variables shared across
// quickdb's subsystems. They start out as no-op stand-ins and are wired to
// real zap-backed loggers by logger/zap.Init during application startup, so
// that packages can log through logger.Dispatch etc. even before Init runs
// (e.g. in unit tests that never call it).
package logger

import "github.com/forbearing/quickdb/types"

var (
	// Dispatch logs operations flowing through the dispatch core (create,
	// find, update, delete).
	Dispatch types.Logger = noop{}
	// Pool logs connection pool lifecycle events (acquire, release, health
	// check, keepalive).
	Pool types.Logger = noop{}
	// Cache logs cache hits/misses/evictions/invalidations.
	Cache types.Logger = noop{}
	// Registry logs model registration and table/index provisioning.
	Registry types.Logger = noop{}
	// IDGen logs id-generation strategy selection and failures.
	IDGen types.Logger = noop{}
	// Adapter logs backend-adapter SQL/BSON compilation and execution.
	Adapter types.Logger = noop{}
	// Bridge logs JSON bridge request/response translation.
	Bridge types.Logger = noop{}
)
