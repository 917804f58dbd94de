package automap

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/automap-go/automap/model"
	"github.com/automap-go/automap/schema"
	"github.com/automap-go/automap/utils"
)

// splitClauses reads an external clause and its parameters from args,
// following Find(dest, "where name = ?", name).
func splitClauses(args []interface{}) (string, []interface{}) {
	if len(args) == 0 {
		return "", nil
	}
	if clause, ok := args[0].(string); ok {
		return strings.TrimSpace(clause), args[1:]
	}
	return "", args
}

// hasWildcards reports whether v should be compared with like.
func hasWildcards(v interface{}) bool {
	s := fmt.Sprint(v)
	return strings.ContainsAny(s, "%_")
}

func writePredicate(stmt *Statement, alias string, v *columnValue) {
	if alias != "" {
		stmt.Write(alias, ".")
	}
	stmt.WriteQuoted(v.name)
	switch {
	case v.null:
		stmt.Write(" is null")
		return
	case hasWildcards(v.value):
		stmt.Write(" like ")
	default:
		stmt.Write(" = ")
	}
	stmt.AddVar(v.value)
}

func and(stmt *Statement) {
	if !stmt.Empty() {
		stmt.Write(" and ")
	}
}

// buildQuery synthesizes the select for obj, an example object, or for t
// alone when obj is invalid.
func (db *DB) buildQuery(ctx context.Context, t reflect.Type, obj reflect.Value, idOnly bool, clause string, params []interface{}) (string, []interface{}, []*schema.Table, error) {
	if utils.HasPrefixFold(clause, "select") {
		return clause, params, nil, nil
	}

	var (
		from     = db.statement()
		where    = db.statement()
		tables   []*schema.Table
		whereSet = map[string]bool{}
	)
	_, err := db.processClasses(ctx, t, obj, walkOptions{tableRequired: true, idColumnsOnly: idOnly}, func(step *chainStep) error {
		tables = append(tables, step.Table)
		alias := step.alias()

		if !from.Empty() {
			from.Write(", ")
		}
		from.WriteTable(step.Table)
		if alias != "" {
			from.Write(" ", alias)
		}

		for _, v := range step.Values.list {
			name := strings.ToLower(v.name)
			if whereSet[name] || v.column == nil || !v.column.Searchable {
				continue
			}
			if k := step.Table.ImportedKey(v.name); k != nil && whereSet[strings.ToLower(k.ForeignColumn)] {
				continue
			}
			whereSet[name] = true
			and(where)
			writePredicate(where, alias, v)
		}

		for _, k := range step.JoinKeys {
			and(where)
			where.Write(fmt.Sprintf("t%d.", step.Number-1))
			where.WriteQuoted(k.ForeignColumn)
			where.Write(" = ", alias, ".")
			where.WriteQuoted(k.LocalColumn)
		}

		clause = db.substituteProperties(clause, t, step.Table)
		return nil
	})
	if err != nil {
		return "", nil, nil, err
	}

	stmt := db.statement()
	stmt.Write("select *")
	if !utils.HasPrefixFold(clause, "from") {
		stmt.Write(" from ")
		stmt.Append(from)
		if !where.Empty() {
			if !utils.HasPrefixFold(clause, "where") {
				stmt.Write(" where ")
				stmt.Append(where)
			}
		} else if idOnly {
			return "", nil, nil, fmt.Errorf("%w for %s", ErrNoIDValues, t)
		}
	}
	if clause != "" {
		stmt.Write(" ", clause)
		stmt.Vars = append(stmt.Vars, params...)
	}
	return stmt.String(), stmt.Vars, tables, nil
}

const propertyDelimiters = "~`!@#$%^&*()-=+\\|]}[{'\";:/?.>,< \t\r\n"

// substituteProperties replaces :property tokens outside quoted literals
// with the quoted columns they resolve to in table. Tokens that do not
// resolve are kept for the next table of the chain.
func (db *DB) substituteProperties(clause string, root reflect.Type, table *schema.Table) string {
	if clause == "" || !strings.Contains(clause, ":") {
		return clause
	}

	var (
		buf     strings.Builder
		literal bool
		props   = db.Descriptor.Properties(root)
	)
	for i := 0; i < len(clause); i++ {
		c := clause[i]
		switch {
		case c == '\'':
			literal = !literal
		case c == ':' && !literal:
			if i+1 < len(clause) && clause[i+1] == ':' {
				buf.WriteString("::")
				i++
				continue
			}
			end := i + 1
			for end < len(clause) && !strings.ContainsRune(propertyDelimiters, rune(clause[end])) {
				end++
			}
			if column := db.tokenColumn(table, root, props, clause[i+1:end]); column != nil {
				buf.WriteString(db.dialect().Quote(column.Name))
				i = end - 1
				continue
			}
		}
		buf.WriteByte(c)
	}
	return buf.String()
}

func (db *DB) tokenColumn(table *schema.Table, root reflect.Type, props []*model.Property, token string) *schema.Column {
	if token == "" {
		return nil
	}
	var override string
	for _, p := range props {
		if strings.EqualFold(p.Name, token) {
			override = db.columnOverride(root, p)
			token = p.Name
			break
		}
	}
	column, err := table.Column(token, override)
	if err != nil {
		return nil
	}
	return column
}

func (db *DB) queryObject(ctx context.Context, t reflect.Type, obj reflect.Value, idOnly bool, clause string, params []interface{}) (*Result, error) {
	sql, vars, tables, err := db.buildQuery(ctx, t, obj, idOnly, clause, params)
	if err != nil {
		return nil, err
	}
	db.metrics.query.Inc(1)
	res, err := db.query(ctx, sql, vars)
	if err != nil {
		return nil, err
	}
	res.model = t
	res.tables = tables
	return res, nil
}

// exampleValue returns a pointer to the struct behind value, which may be
// a pointer to a struct or a type; the latter gives an invalid value.
func exampleValue(value interface{}) (reflect.Type, reflect.Value, error) {
	t := model.TypeOf(value)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, reflect.Value{}, ErrUnsupportedModel
	}
	if _, ok := value.(reflect.Type); ok {
		return t, reflect.Value{}, nil
	}
	v := reflect.ValueOf(value)
	switch {
	case v.Kind() == reflect.Pointer && !v.IsNil() && v.Type().Elem() == t:
		return t, v, nil
	case v.Kind() == reflect.Struct:
		p := reflect.New(t)
		p.Elem().Set(v)
		return t, p, nil
	}
	return t, reflect.Value{}, nil
}

// QueryObject selects the rows matching the non-zero fields of value, a
// pointer to a struct, or every row of a type given as a reflect.Type or
// a nil pointer. An optional external clause with parameters completes or
// replaces the generated SQL:
//
//	db.QueryObject(&Customer{Name: "J%"}, "order by :name")
func (db *DB) QueryObject(value interface{}, clauses ...interface{}) (*Result, error) {
	t, obj, err := exampleValue(value)
	if err != nil {
		return nil, wrapError("query", err)
	}
	clause, params := splitClauses(clauses)
	res, err := db.queryObject(db.ctx, t, obj, false, clause, params)
	return res, wrapError("query", err)
}

// LoadObject loads the first row matching dest into dest.
func (db *DB) LoadObject(dest interface{}, clauses ...interface{}) error {
	t, obj, err := exampleValue(dest)
	if err == nil && (!obj.IsValid() || obj.Interface() != dest) {
		err = ErrModelValueRequired
	}
	if err != nil {
		return wrapError("load", err)
	}

	clause, params := splitClauses(clauses)
	res, err := db.queryObject(db.ctx, t, obj, false, clause, params)
	if err != nil {
		return wrapError("load", err)
	}
	if !res.Next() {
		return wrapError("load", ErrRecordNotFound)
	}
	return wrapError("load", res.Current(dest))
}

// LoadObjects loads every row selected for the element type of dest, a
// pointer to a slice of structs or struct pointers.
func (db *DB) LoadObjects(dest interface{}, clauses ...interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return wrapError("load", ErrModelValueRequired)
	}
	t := model.TypeOf(dest)
	if t.Kind() != reflect.Struct {
		return wrapError("load", ErrUnsupportedModel)
	}

	clause, params := splitClauses(clauses)
	res, err := db.queryObject(db.ctx, t, reflect.Value{}, false, clause, params)
	if err != nil {
		return wrapError("load", err)
	}
	return wrapError("load", res.All(dest))
}

// ExecuteQuery runs caller written SQL. The result maps rows into any
// struct through Current and All.
func (db *DB) ExecuteQuery(sql string, args ...interface{}) (*Result, error) {
	res, err := db.query(db.ctx, sql, args)
	return res, wrapError("query", err)
}

// ExecuteUpdate runs caller written SQL returning the affected rows.
func (db *DB) ExecuteUpdate(sql string, args ...interface{}) (int64, error) {
	result, err := db.exec(db.ctx, sql, args)
	if err != nil {
		return 0, wrapError("exec", err)
	}
	n, err := result.RowsAffected()
	return n, wrapError("exec", err)
}
