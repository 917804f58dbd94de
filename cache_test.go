package automap_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automap-go/automap"
)

func TestObjectCacheRestoresPersistence(t *testing.T) {
	env := newEnv(t)
	env.seedCustomers(t)
	env.DB.Classes().SetIgnoreAssociations(Customer{}, true)

	cache := automap.NewObjectCache(env.DB, nil)
	c := &Customer{ID: 2}
	require.NoError(t, env.DB.LoadObject(c))

	key := cache.Key(c)
	assert.Equal(t, "Customer_id=2", key)
	cache.Put(key, c)

	env.DB.Detach(c)
	assert.False(t, env.DB.IsPersistent(c))

	v, ok := cache.Get(key)
	require.True(t, ok)
	require.Same(t, c, v)
	assert.True(t, env.DB.IsPersistent(c))

	// the restored key drives the update
	c.ID, c.City = 0, "Paris"
	env.Store.ResetLog()
	_, err := env.DB.UpdateObject(c)
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.Store.Statements()[0].Args[3])
	assert.Equal(t, "Paris", env.Store.Rows("customers")[1]["city"])

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestLRUCache(t *testing.T) {
	cache := automap.NewLRUCache(2, time.Hour)
	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	_, ok := cache.Get("a")
	assert.False(t, ok)
	v, ok := cache.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestObjectCacheStoresPlainValues(t *testing.T) {
	env := newEnv(t)
	lru := automap.NewLRUCache(0, 0)
	lru.Put("answer", 42)

	v, ok := automap.NewObjectCache(env.DB, lru).Get("answer")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}
