package schema

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
)

type memTable struct {
	ref      TableRef
	pks      []string
	imported []Key
	exported []Key
	columns  []ColumnInfo
}

// memSchema is an Introspector over tables declared in the test.
type memSchema struct {
	dialect Dialect
	tables  []*memTable

	mu       sync.Mutex
	patterns []string
	loads    map[string]int
	err      error
}

func newMemSchema() *memSchema {
	return &memSchema{dialect: Dialect{Name: "mem", URL: "mem://test"}, loads: map[string]int{}}
}

func (s *memSchema) add(schema, name string, columns ...string) *memTable {
	t := &memTable{ref: TableRef{Schema: schema, Name: name, Type: "TABLE"}}
	for _, c := range columns {
		info := ColumnInfo{Name: c, TypeName: "VARCHAR", Nullable: true, Searchable: true}
		if c == "id" {
			info.TypeName, info.AutoIncrement = "INTEGER", true
			t.pks = append(t.pks, c)
		}
		t.columns = append(t.columns, info)
	}
	s.tables = append(s.tables, t)
	return t
}

func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func (s *memSchema) Describe(context.Context) (Dialect, error) {
	return s.dialect, nil
}

func (s *memSchema) Tables(_ context.Context, _, schema, pattern string, _ []string) ([]TableRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, pattern)
	if s.err != nil {
		return nil, s.err
	}
	re := likeRegexp(pattern)
	var refs []TableRef
	for _, t := range s.tables {
		if (schema == "" || strings.EqualFold(schema, t.ref.Schema)) && re.MatchString(t.ref.Name) {
			refs = append(refs, t.ref)
		}
	}
	return refs, nil
}

func (s *memSchema) find(ref TableRef) *memTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads[ref.Name]++
	for _, t := range s.tables {
		if t.ref == ref {
			return t
		}
	}
	return nil
}

func (s *memSchema) PrimaryKeys(_ context.Context, ref TableRef) ([]string, error) {
	return s.find(ref).pks, nil
}

func (s *memSchema) ImportedKeys(_ context.Context, ref TableRef) ([]Key, error) {
	return s.find(ref).imported, nil
}

func (s *memSchema) ExportedKeys(_ context.Context, ref TableRef) ([]Key, error) {
	return s.find(ref).exported, nil
}

func (s *memSchema) Columns(_ context.Context, ref TableRef) ([]ColumnInfo, error) {
	return s.find(ref).columns, nil
}

func resolve(t *testing.T, c *Catalog, src Introspector, typeName, override string) *Table {
	t.Helper()
	table, err := c.Resolve(context.Background(), src, Scope{}, TableRequest{TypeName: typeName, Override: override})
	require.NoError(t, err)
	return table
}

func TestResolveCascade(t *testing.T) {
	src := newMemSchema()
	src.add("", "customers", "id", "name")
	src.add("", "Person", "id")
	src.add("", "order_line", "id")
	src.add("", "categories", "id")
	c := NewCatalog(src.dialect, DefaultOptions())

	tests := []struct {
		typeName, override, table string
	}{
		{"Customer", "", "customers"},
		{"Person", "", "Person"},
		{"OrderLine", "", "order_line"},
		{"Category", "", "categories"},
		{"Anything", "customers", "customers"},
	}
	for _, tt := range tests {
		table := resolve(t, c, src, tt.typeName, tt.override)
		require.NotNil(t, table, tt.typeName)
		assert.Equal(t, tt.table, table.Name)
		assert.True(t, table.Loaded())
	}
}

func TestResolveCachesAnswers(t *testing.T) {
	src := newMemSchema()
	src.add("", "customers", "id", "name")
	scope := tally.NewTestScope("", nil)
	c := newCatalog(src.dialect, DefaultOptions(), nil, scope)

	first := resolve(t, c, src, "Customer", "")
	second := resolve(t, c, src, "Customer", "")
	assert.Same(t, first, second)
	// four introspection calls, once
	assert.Equal(t, 4, src.loads["customers"])

	assert.Nil(t, resolve(t, c, src, "Invoice", ""))
	lookups := len(src.patterns)
	assert.Nil(t, resolve(t, c, src, "Invoice", ""))
	assert.Len(t, src.patterns, lookups)

	counters := scope.Snapshot().Counters()
	assert.Equal(t, int64(1), counters["catalog.table_not_found+"].Value())
	assert.Equal(t, int64(2), counters["catalog.table_cache_hit+"].Value())
}

func TestResolveSubstring(t *testing.T) {
	src := newMemSchema()
	src.add("", "tbl_customer_archive", "id")
	c := NewCatalog(src.dialect, DefaultOptions())

	table := resolve(t, c, src, "Customer", "")
	require.NotNil(t, table)
	assert.Equal(t, "tbl_customer_archive", table.Name)

	opts := DefaultOptions()
	opts.StrictTableMatching = true
	strict := NewCatalog(src.dialect, opts)
	assert.Nil(t, resolve(t, strict, src, "Customer", ""))
}

func TestResolveAmbiguous(t *testing.T) {
	src := newMemSchema()
	src.add("", "customer_archive", "id")
	src.add("", "customer_history", "id")
	c := NewCatalog(src.dialect, DefaultOptions())

	_, err := c.Resolve(context.Background(), src, Scope{}, TableRequest{TypeName: "Customer"})
	require.ErrorIs(t, err, ErrAmbiguousMatch)

	var ambiguity *AmbiguityError
	require.True(t, errors.As(err, &ambiguity))
	assert.Equal(t, "table", ambiguity.Kind)
	assert.Equal(t, []string{"customer_archive", "customer_history"}, ambiguity.Candidates)
	assert.Contains(t, err.Error(), "enable strict matching")

	// an override settles it
	table := resolve(t, c, src, "Customer", "customer_history")
	assert.Equal(t, "customer_history", table.Name)
}

func TestResolveAffixes(t *testing.T) {
	src := newMemSchema()
	src.add("", "T_CUSTOMER_V", "id")
	opts := DefaultOptions()
	opts.TablePrefixes = []string{"t_"}
	opts.TableSuffixes = []string{"_v"}
	opts.StrictTableMatching = true
	c := NewCatalog(src.dialect, opts)

	table := resolve(t, c, src, "Customer", "")
	require.NotNil(t, table)
	assert.Equal(t, "T_CUSTOMER_V", table.Name)
}

func TestResolveScope(t *testing.T) {
	src := newMemSchema()
	src.add("sales", "customers", "id")
	src.add("hr", "customers", "id")
	c := NewCatalog(src.dialect, DefaultOptions())

	_, err := c.Resolve(context.Background(), src, Scope{}, TableRequest{TypeName: "Customer"})
	assert.ErrorIs(t, err, ErrAmbiguousMatch)

	table, err := c.Resolve(context.Background(), src, Scope{Schema: "hr"}, TableRequest{TypeName: "Customer"})
	require.NoError(t, err)
	assert.Equal(t, "hr.customers", table.AbsoluteName())

	table, err = c.Resolve(context.Background(), src, Scope{Schema: "SALES"}, TableRequest{TypeName: "Customer"})
	require.NoError(t, err)
	assert.Equal(t, "sales.customers", table.AbsoluteName())

	// filters name the whole schema
	table, err = c.Resolve(context.Background(), src, Scope{Schema: "h"}, TableRequest{TypeName: "Customer"})
	require.NoError(t, err)
	assert.Nil(t, table)
}

func TestResolveIntrospectionError(t *testing.T) {
	src := newMemSchema()
	src.err = errors.New("permission denied")
	c := NewCatalog(src.dialect, DefaultOptions())

	_, err := c.Resolve(context.Background(), src, Scope{}, TableRequest{TypeName: "Customer"})
	assert.ErrorIs(t, err, src.err)
	assert.ErrorContains(t, err, `list tables like "Customers"`)
}

func TestCatalogsShareByURL(t *testing.T) {
	a, b := newMemSchema(), newMemSchema()
	other := newMemSchema()
	other.dialect.URL = "mem://other"
	catalogs := NewCatalogs(DefaultOptions())

	ca, err := catalogs.Catalog(context.Background(), a)
	require.NoError(t, err)
	cb, err := catalogs.Catalog(context.Background(), b)
	require.NoError(t, err)
	co, err := catalogs.Catalog(context.Background(), other)
	require.NoError(t, err)

	assert.Same(t, ca, cb)
	assert.NotSame(t, ca, co)
	assert.Equal(t, "mem", ca.Dialect().Name)
}

func TestConcurrentResolve(t *testing.T) {
	src := newMemSchema()
	src.add("", "customers", "id", "name")
	c := NewCatalog(src.dialect, DefaultOptions())

	tables := make([]*Table, 16)
	var wg sync.WaitGroup
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i], _ = c.Resolve(context.Background(), src, Scope{}, TableRequest{TypeName: "Customer"})
		}(i)
	}
	wg.Wait()

	for _, table := range tables {
		assert.Same(t, tables[0], table)
	}
	assert.Len(t, c.Tables(), 1)
}
