package schema

import "context"

// TableRequest names the table wanted for a type.
type TableRequest struct {
	// TypeName is the Go type name, Customer for []*Customer.
	TypeName string
	// Override is an explicit table name configured for the type.
	Override string
}

func (r TableRequest) searchName() string {
	if r.Override != "" {
		return r.TypeName + "=" + r.Override
	}
	return r.TypeName
}

// Resolve finds the table for a type. It first runs the search cascade
// matching exact names only, then again with substring patterns. The
// returned table has its columns and keys loaded. A nil table with a nil
// error means nothing matched; that answer is cached too.
//
// The cascade stops at the first hit:
//
//  1. the configured override
//  2. each plural of the type name
//  3. the type name itself
//  4. its underscored form
//  5. unless strict, any discovered table containing the name
func (c *Catalog) Resolve(ctx context.Context, src Introspector, scope Scope, req TableRequest) (*Table, error) {
	key := scope.key(req.searchName())
	if v, ok := c.lookups.Load(key); ok {
		c.metrics.tableCacheHit.Inc(1)
		if v == notFoundTable {
			return nil, nil
		}
		return v.(*Table), nil
	}
	c.metrics.tableLookup.Inc(1)

	table, err := c.cascade(ctx, src, scope, req, true)
	if err == nil && table == nil {
		table, err = c.cascade(ctx, src, scope, req, false)
	}
	if err != nil {
		return nil, err
	}

	if table == nil {
		c.metrics.tableNotFound.Inc(1)
		c.logger.Debug(ctx, "no table found for %s", req.TypeName)
		c.lookups.Store(key, notFoundTable)
		return nil, nil
	}

	if err := table.load(ctx, src); err != nil {
		return nil, err
	}
	c.logger.Debug(ctx, "type %s resolved to table %s", req.TypeName, table)

	actual, _ := c.lookups.LoadOrStore(key, table)
	return actual.(*Table), nil
}

func (c *Catalog) cascade(ctx context.Context, src Introspector, scope Scope, req TableRequest, exact bool) (*Table, error) {
	if req.Override != "" {
		if t, err := c.Lookup(ctx, src, scope, req.Override, true); err != nil || t != nil {
			return t, err
		}
	}

	for _, plural := range Pluralize(req.TypeName) {
		if t, err := c.Lookup(ctx, src, scope, plural, exact); err != nil || t != nil {
			return t, err
		}
	}

	if t, err := c.Lookup(ctx, src, scope, req.TypeName, exact); err != nil || t != nil {
		return t, err
	}

	if underscored := CamelToUnderscore(req.TypeName); underscored != req.TypeName {
		if t, err := c.Lookup(ctx, src, scope, underscored, exact); err != nil || t != nil {
			return t, err
		}
	}

	if exact || c.options.StrictTableMatching {
		return nil, nil
	}
	return c.scan(scope, req.TypeName, false)
}
