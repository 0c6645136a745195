package accountsync

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"dbaccountsync/models"
)

// ErrUnsupportedEngine is returned by Resolve for engine identifiers with no
// registered adapter. Resolution never falls back to a default adapter.
var ErrUnsupportedEngine = errors.New("unsupported engine")

// engineAliases maps accepted identifier spellings to canonical engines.
var engineAliases = map[string]models.Engine{
	"mysql":      models.EngineMySQL,
	"mariadb":    models.EngineMySQL,
	"postgresql": models.EnginePostgreSQL,
	"postgres":   models.EnginePostgreSQL,
	"sqlserver":  models.EngineSQLServer,
	"mssql":      models.EngineSQLServer,
	"oracle":     models.EngineOracle,
}

var (
	registryMu sync.RWMutex
	factories  = map[models.Engine]func() Adapter{}
)

// Register installs an adapter factory for an engine. Engine packages call
// this from init; a later registration for the same engine wins, which lets
// tests install fakes.
func Register(engine models.Engine, factory func() Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[engine] = factory
}

// Resolve returns the adapter for an engine identifier, case-insensitively.
// Unknown identifiers fail with ErrUnsupportedEngine before any connection
// use.
func Resolve(identifier string) (Adapter, error) {
	engine, ok := engineAliases[strings.ToLower(strings.TrimSpace(identifier))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, identifier)
	}

	registryMu.RLock()
	factory := factories[engine]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("%w: no adapter registered for %s", ErrUnsupportedEngine, engine)
	}
	return factory(), nil
}
