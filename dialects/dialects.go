// Package dialects opens automap handles by database name.
package dialects

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/automap-go/automap/dialects/common"
	"github.com/automap-go/automap/dialects/mysql"
	"github.com/automap-go/automap/dialects/postgres"
	"github.com/automap-go/automap/dialects/sqlite"
)

// OpenFunc opens a handle on dsn.
type OpenFunc func(ctx context.Context, dsn string) (*common.DB, error)

var (
	mu      sync.RWMutex
	openers = map[string]OpenFunc{
		"sqlite":   sqlite.Open,
		"sqlite3":  sqlite.Open,
		"postgres": postgres.Open,
		"pgx":      postgres.Open,
		"pq": func(ctx context.Context, dsn string) (*common.DB, error) {
			return postgres.OpenWith(ctx, postgres.DriverPq, dsn)
		},
		"mysql":   mysql.Open,
		"mariadb": mysql.Open,
	}
)

// Register makes a dialect available to Open. It replaces a dialect
// registered with the same name.
func Register(name string, open OpenFunc) {
	mu.Lock()
	defer mu.Unlock()
	openers[strings.ToLower(name)] = open
}

// Names lists the registered dialects.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(openers))
	for name := range openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens dsn with the named dialect.
func Open(ctx context.Context, name, dsn string) (*common.DB, error) {
	mu.RLock()
	open, ok := openers[strings.ToLower(name)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q, expected one of %s", name, strings.Join(Names(), ", "))
	}
	return open(ctx, dsn)
}
