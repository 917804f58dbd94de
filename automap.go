package automap

import (
	"context"
	"reflect"

	"github.com/uber-go/tally/v4"

	"github.com/automap-go/automap/logger"
	"github.com/automap-go/automap/model"
	"github.com/automap-go/automap/schema"
)

// Config automap config
type Config struct {
	// Saves and deletes run in a transaction unless already inside one.
	// You can disable it by setting `SkipDefaultTransaction` to true
	SkipDefaultTransaction bool
	// Logger
	Logger logger.Interface
	// Descriptor describes mapped types, model.Reflect by default
	Descriptor model.Descriptor
	// Classes per type mapping configuration, DefaultClasses by default
	Classes *ClassManager
	// Tracker persistence state of objects, DefaultTracker by default
	Tracker Tracker
	// Catalogs schema caches shared by handles of the same databases
	Catalogs *schema.Catalogs
	// Options name matching options used when Catalogs is nil
	Options *schema.Options
	// CatalogPattern and SchemaPattern restrict table lookups
	CatalogPattern string
	SchemaPattern  string
	// IgnoreAssociations overrides the per type setting when not nil
	IgnoreAssociations *bool
	// Metrics root scope, tally.NoopScope by default
	Metrics tally.Scope

	metrics *metrics
}

// DB automap DB definition
type DB struct {
	*Config
	handle  Handle
	conn    Handle
	tx      Tx
	catalog *schema.Catalog
	ctx     context.Context
}

// Session session config when create session with Session() method
type Session struct {
	Context                context.Context
	Logger                 logger.Interface
	IgnoreAssociations     *bool
	SkipDefaultTransaction bool
}

// Open initialize db session based on handle
func Open(handle Handle, config *Config) (db *DB, err error) {
	if handle == nil {
		return nil, wrapError("open", ErrInvalidDB)
	}
	if config == nil {
		config = &Config{}
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}

	if config.Descriptor == nil {
		config.Descriptor = model.Reflect
	}

	if config.Classes == nil {
		config.Classes = DefaultClasses
	}

	if config.Tracker == nil {
		config.Tracker = DefaultTracker
	}

	if config.Metrics == nil {
		config.Metrics = tally.NoopScope
	}

	if config.Catalogs == nil {
		opts := schema.DefaultOptions()
		if config.Options != nil {
			opts = *config.Options
		}
		config.Catalogs = schema.NewCatalogs(opts)
		config.Catalogs.Logger = config.Logger
		config.Catalogs.Metrics = config.Metrics
	}

	config.metrics = newMetrics(config.Metrics)

	db = &DB{Config: config, handle: handle, conn: handle, ctx: context.Background()}
	if db.catalog, err = config.Catalogs.Catalog(db.ctx, handle); err != nil {
		return nil, wrapError("open", err)
	}
	return db, nil
}

// Session create new db session
func (db *DB) Session(config *Session) *DB {
	var (
		txConfig = *db.Config
		tx       = *db
	)
	tx.Config = &txConfig

	if config.Context != nil {
		tx.ctx = config.Context
	}

	if config.Logger != nil {
		tx.Config.Logger = config.Logger
	}

	if config.IgnoreAssociations != nil {
		ignore := *config.IgnoreAssociations
		tx.Config.IgnoreAssociations = &ignore
	}

	if config.SkipDefaultTransaction {
		tx.Config.SkipDefaultTransaction = true
	}

	return &tx
}

// WithContext change current instance db's context to ctx
func (db *DB) WithContext(ctx context.Context) *DB {
	return db.Session(&Session{Context: ctx})
}

// Debug start debug mode
func (db *DB) Debug() *DB {
	return db.Session(&Session{Logger: db.Logger.LogMode(logger.Info)})
}

// Context returns the context operations of db run with.
func (db *DB) Context() context.Context {
	return db.ctx
}

// Handle returns the connection statements run on: the transaction
// inside Transaction, else the handle given to Open.
func (db *DB) Handle() Handle {
	return db.conn
}

// Catalog returns the schema cache of the database.
func (db *DB) Catalog() *schema.Catalog {
	return db.catalog
}

// Classes returns the mapping configuration in use.
func (db *DB) Classes() *ClassManager {
	return db.Config.Classes
}

// Table returns the table the type of value is stored in, the base
// table for chains stored in several tables.
func (db *DB) Table(value interface{}) (*schema.Table, error) {
	t := model.TypeOf(value)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, wrapError("table", ErrUnsupportedModel)
	}
	levels := db.levels(t, walkOptions{baseTableOnly: true})
	table, err := db.tableFor(db.ctx, levels[0].table)
	if err == nil && table == nil {
		err = tableNotFound(levels[0].table)
	}
	return table, wrapError("table", err)
}

func (db *DB) scope() schema.Scope {
	return schema.Scope{Catalog: db.CatalogPattern, Schema: db.SchemaPattern}
}

func (db *DB) dialect() schema.Dialect {
	return db.catalog.Dialect()
}

// tableFor resolves the table of t; nil without error when none matches.
func (db *DB) tableFor(ctx context.Context, t reflect.Type) (*schema.Table, error) {
	req := schema.TableRequest{TypeName: model.TypeName(t), Override: db.tableOverride(t)}
	return db.catalog.Resolve(ctx, db.conn, db.scope(), req)
}

func (db *DB) tableOverride(t reflect.Type) string {
	if name := db.Config.Classes.TableMapping(t); name != "" {
		return name
	}
	if tabler, ok := reflect.New(t).Interface().(model.Tabler); ok {
		return tabler.TableName()
	}
	return ""
}

func (db *DB) ignoreAssociations(t reflect.Type) bool {
	if db.Config.IgnoreAssociations != nil {
		return *db.Config.IgnoreAssociations
	}
	return db.Config.Classes.IgnoreAssociations(t)
}
