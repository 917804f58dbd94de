package mysql

import (
	"context"
	"os"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automap-go/automap/schema"
)

func TestDatabaseURL(t *testing.T) {
	cfg, err := mysql.ParseDSN("jane:secret@tcp(db.local:3306)/shop?charset=utf8mb4")
	require.NoError(t, err)
	assert.Equal(t, "mysql://db.local:3306/shop", DatabaseURL(cfg))
}

func TestConditions(t *testing.T) {
	cond, args := schemaCondition("table_schema", "")
	assert.Equal(t, "table_schema = database()", cond)
	assert.Empty(t, args)

	cond, args = schemaCondition("table_schema", "sales%")
	assert.Equal(t, "table_schema like ?", cond)
	assert.Equal(t, []interface{}{"sales%"}, args)

	cond, args = tableCondition(schema.TableRef{Schema: "sales", Name: "orders"}, "referenced_")
	assert.Equal(t, "referenced_table_schema = ? and referenced_table_name = ?", cond)
	assert.Equal(t, []interface{}{"sales", "orders"}, args)

	cond, args = tableCondition(schema.TableRef{Name: "orders"}, "")
	assert.Equal(t, "table_schema = database() and table_name = ?", cond)
	assert.Equal(t, []interface{}{"orders"}, args)
}

// TestIntrospection runs against the database named by AUTOMAP_MYSQL_DSN.
func TestIntrospection(t *testing.T) {
	dsn := os.Getenv("AUTOMAP_MYSQL_DSN")
	if dsn == "" {
		t.Skip("AUTOMAP_MYSQL_DSN not set")
	}
	ctx := context.Background()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	for _, ddl := range []string{
		"drop table if exists automap_orders",
		"drop table if exists automap_customers",
		"create table automap_customers (id int auto_increment primary key, name varchar(64) not null)",
		"create table automap_orders (id int auto_increment primary key, customer_id int, foreign key (customer_id) references automap_customers(id))",
	} {
		_, err := db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	d, err := db.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "`", d.IdentifierQuote)

	refs, err := db.Tables(ctx, "", "", "automap_customers", []string{"TABLE"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Empty(t, refs[0].Schema)

	exported, err := db.ExportedKeys(ctx, refs[0])
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, "id", exported[0].LocalColumn)
	assert.Equal(t, "automap_orders", exported[0].ForeignTable)
	assert.Equal(t, "customer_id", exported[0].ForeignColumn)

	columns, err := db.Columns(ctx, refs[0])
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.True(t, columns[0].AutoIncrement)
	assert.Equal(t, 64, columns[1].Size)
}
