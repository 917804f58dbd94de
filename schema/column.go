package schema

import (
	"context"
	"sort"
	"strings"
)

var notFoundColumn = &Column{Name: "<not found>"}

// Column resolves a property name to a column of the table. override is
// an explicit column name for the property and wins when it exists.
// A nil column with a nil error means the property is not mapped; that
// answer is cached like any other.
func (t *Table) Column(property, override string) (*Column, error) {
	key := property
	if override != "" {
		key += "\x00" + override
	}

	if v, ok := t.columnCache.Load(key); ok {
		if v == notFoundColumn {
			return nil, nil
		}
		return v.(*Column), nil
	}

	col, err := t.searchColumn(property, override)
	if err != nil {
		return nil, err
	}

	if col == nil {
		t.columnCache.Store(key, notFoundColumn)
		return nil, nil
	}
	actual, _ := t.columnCache.LoadOrStore(key, col)
	return actual.(*Column), nil
}

func (t *Table) searchColumn(property, override string) (*Column, error) {
	var (
		opts = t.catalog.options
		want = Normalize(property)
	)
	t.catalog.metrics.columnLookup.Inc(1)

	if override != "" {
		if col := t.ColumnByName(override); col != nil {
			return col, nil
		}
	}

	if col := t.ColumnByName(property); col != nil {
		return col, nil
	}

	if opts.hasColumnAffixes() {
		var matches []*Column
		for _, col := range t.columns {
			if Normalize(opts.stripColumn(col.Name)) == want {
				matches = append(matches, col)
			}
		}
		if len(matches) > 1 {
			return nil, t.ambiguousColumn(property, matches)
		} else if len(matches) == 1 {
			return matches[0], nil
		}
	}

	if opts.StrictColumnMatching {
		return nil, nil
	}

	var matches []*Column
	for _, col := range t.columns {
		name := Normalize(col.Name)
		stripped := Normalize(opts.stripColumn(col.Name))
		if name == want || stripped == want {
			return col, nil
		}
		if strings.Contains(name, want) || strings.Contains(stripped, want) {
			matches = append(matches, col)
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		t.catalog.logger.Debug(context.Background(), "property %s matched column %s.%s by substring", property, t.Name, matches[0].Name)
		return matches[0], nil
	default:
		return nil, t.ambiguousColumn(property, matches)
	}
}

func (t *Table) ambiguousColumn(property string, matches []*Column) error {
	names := make([]string, 0, len(matches))
	for _, col := range matches {
		names = append(names, t.Name+"."+col.Name)
	}
	sort.Strings(names)
	t.catalog.metrics.ambiguous.Inc(1)
	return &AmbiguityError{Kind: "column", Name: property, Candidates: names}
}
