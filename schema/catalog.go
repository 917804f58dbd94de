package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/uber-go/tally/v4"

	"github.com/automap-go/automap/logger"
)

// Scope restricts a search to a catalog and schema. Empty parts match
// anything.
type Scope struct {
	Catalog string
	Schema  string
}

// matches reports whether t lies in the scope. Filters are compared with
// whole names, ignoring case, since databases report catalog and schema
// names in the case they store them.
func (s Scope) matches(t *Table) bool {
	return (s.Catalog == "" || strings.EqualFold(s.Catalog, t.Catalog)) &&
		(s.Schema == "" || strings.EqualFold(s.Schema, t.Schema))
}

func (s Scope) key(name string) string {
	return Normalize(s.Catalog + "." + s.Schema + "." + name)
}

type catalogMetrics struct {
	tableLookup   tally.Counter
	tableCacheHit tally.Counter
	tableNotFound tally.Counter
	columnLookup  tally.Counter
	ambiguous     tally.Counter
}

func newCatalogMetrics(scope tally.Scope) catalogMetrics {
	if scope == nil {
		scope = tally.NoopScope
	}
	scope = scope.SubScope("catalog")
	return catalogMetrics{
		tableLookup:   scope.Counter("table_lookup"),
		tableCacheHit: scope.Counter("table_cache_hit"),
		tableNotFound: scope.Counter("table_not_found"),
		columnLookup:  scope.Counter("column_lookup"),
		ambiguous:     scope.Counter("ambiguous_match"),
	}
}

// Catalogs holds one Catalog per database URL. It is owned by whoever
// opens connections; handles to the same database share a catalog.
type Catalogs struct {
	Options Options
	Logger  logger.Interface
	Metrics tally.Scope

	catalogs sync.Map
}

// NewCatalogs creates a registry whose catalogs match names with opts.
func NewCatalogs(opts Options) *Catalogs {
	return &Catalogs{Options: opts}
}

// Catalog returns the catalog of the database behind src, describing it
// on first use.
func (r *Catalogs) Catalog(ctx context.Context, src Introspector) (*Catalog, error) {
	dialect, err := src.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe database: %w", err)
	}

	if v, ok := r.catalogs.Load(dialect.URL); ok {
		return v.(*Catalog), nil
	}

	c := newCatalog(dialect, r.Options, r.Logger, r.Metrics)
	actual, _ := r.catalogs.LoadOrStore(dialect.URL, c)
	return actual.(*Catalog), nil
}

// Catalog caches the tables of one database. Lookups are safe for
// concurrent use; when two goroutines discover the same table the first
// one stored wins.
type Catalog struct {
	dialect Dialect
	options Options
	logger  logger.Interface
	metrics catalogMetrics

	// normalized absolute name -> *Table
	tables sync.Map
	// search key -> *Table or notFoundTable
	lookups sync.Map
}

var notFoundTable = &Table{Name: "<not found>"}

// NewCatalog creates a standalone catalog for dialect.
func NewCatalog(dialect Dialect, opts Options) *Catalog {
	return newCatalog(dialect, opts, nil, nil)
}

func newCatalog(dialect Dialect, opts Options, log logger.Interface, scope tally.Scope) *Catalog {
	if log == nil {
		log = logger.Discard
	}
	if len(opts.TableTypes) == 0 {
		opts.TableTypes = DefaultOptions().TableTypes
	}
	return &Catalog{dialect: dialect, options: opts, logger: log, metrics: newCatalogMetrics(scope)}
}

// Dialect returns the description of the database.
func (c *Catalog) Dialect() Dialect {
	return c.dialect
}

// Options returns the matching options of the catalog.
func (c *Catalog) Options() Options {
	return c.options
}

// Tables returns every table discovered so far, sorted by absolute name.
func (c *Catalog) Tables() []*Table {
	var tables []*Table
	c.tables.Range(func(_, v any) bool {
		tables = append(tables, v.(*Table))
		return true
	})
	sort.Slice(tables, func(i, j int) bool { return tables[i].AbsoluteName() < tables[j].AbsoluteName() })
	return tables
}

func (c *Catalog) register(ref TableRef) *Table {
	t := newTable(c, ref)
	actual, _ := c.tables.LoadOrStore(Normalize(t.AbsoluteName()), t)
	return actual.(*Table)
}

// Lookup searches the database for name. With exact the name is passed
// to the introspector as is, otherwise it is wrapped in % wildcards. The
// pattern is tried as given, then upper- and lowercased, and the search
// stops at the first variant yielding a table whose normalized name (or
// affix-stripped name) equals name.
func (c *Catalog) Lookup(ctx context.Context, src Introspector, scope Scope, name string, exact bool) (*Table, error) {
	if name == "" {
		return nil, nil
	}

	if t, err := c.scan(scope, name, true); err != nil || t != nil {
		return t, err
	}

	for _, variant := range CaseVariants(name) {
		pattern := variant
		if !exact {
			pattern = "%" + variant + "%"
		}

		refs, err := src.Tables(ctx, scope.Catalog, scope.Schema, pattern, c.options.TableTypes)
		if err != nil {
			return nil, fmt.Errorf("list tables like %q: %w", pattern, err)
		}
		if len(refs) == 0 {
			continue
		}

		for _, ref := range refs {
			c.register(ref)
		}
		if t, err := c.scan(scope, name, true); err != nil || t != nil {
			return t, err
		}
	}
	return nil, nil
}

// scan looks through the discovered tables. A strict scan accepts only
// tables whose normalized or stripped name equals name; otherwise a
// table containing name also matches. More than one match is an error.
func (c *Catalog) scan(scope Scope, name string, strict bool) (*Table, error) {
	var (
		want            = Normalize(name)
		exact, contains []*Table
	)

	c.tables.Range(func(_, v any) bool {
		t := v.(*Table)
		if !scope.matches(t) {
			return true
		}
		if t.normalized == want || t.stripped == want {
			exact = append(exact, t)
		} else if !strict && (strings.Contains(t.normalized, want) || strings.Contains(t.stripped, want)) {
			contains = append(contains, t)
		}
		return true
	})

	switch {
	case len(exact) == 1:
		return exact[0], nil
	case len(exact) > 1:
		return nil, c.ambiguousTable(name, exact)
	case strict || len(contains) == 0:
		return nil, nil
	case len(contains) == 1:
		c.logger.Debug(context.Background(), "table %s matched %s by substring", name, contains[0])
		return contains[0], nil
	default:
		return nil, c.ambiguousTable(name, contains)
	}
}

func (c *Catalog) ambiguousTable(name string, matches []*Table) error {
	names := make([]string, 0, len(matches))
	for _, t := range matches {
		names = append(names, t.AbsoluteName())
	}
	sort.Strings(names)
	c.metrics.ambiguous.Inc(1)
	return &AmbiguityError{Kind: "table", Name: name, Candidates: names}
}
