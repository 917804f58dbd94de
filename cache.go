package automap

import (
	"fmt"
	"sort"
	"time"

	"github.com/automap-go/automap/internal/lru"
	"github.com/automap-go/automap/model"
	"github.com/automap-go/automap/utils"
)

// Cache stores values by key.
type Cache interface {
	Get(key interface{}) (interface{}, bool)
	Put(key, value interface{})
}

type lruCache struct {
	lru *lru.LRU[interface{}, interface{}]
}

// NewLRUCache returns a Cache holding at most size entries, each for at
// most ttl; zero disables either limit.
func NewLRUCache(size int, ttl time.Duration) Cache {
	return &lruCache{lru: lru.NewLRU[interface{}, interface{}](size, nil, ttl)}
}

func (c *lruCache) Get(key interface{}) (interface{}, bool) {
	return c.lru.Get(key)
}

func (c *lruCache) Put(key, value interface{}) {
	c.lru.Add(key, value)
}

// CacheItem is what ObjectCache stores: the object and its persistence
// state when it was put.
type CacheItem struct {
	Value interface{}
	Info  ObjectInformation
}

// ObjectCache caches loaded objects. Getting an object restores its
// persistence state, so it can be updated and deleted as if just loaded.
type ObjectCache struct {
	db    *DB
	cache Cache
}

func NewObjectCache(db *DB, cache Cache) *ObjectCache {
	if cache == nil {
		cache = NewLRUCache(0, 0)
	}
	return &ObjectCache{db: db, cache: cache}
}

// Put caches obj, a pointer, under key.
func (c *ObjectCache) Put(key, obj interface{}) {
	info := c.db.objectInfo(obj).snapshot()
	c.cache.Put(key, &CacheItem{Value: obj, Info: info})
}

// Get returns the object cached under key.
func (c *ObjectCache) Get(key interface{}) (interface{}, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	item, ok := v.(*CacheItem)
	if !ok {
		return v, true
	}
	info := c.db.objectInfo(item.Value)
	restored := item.Info.snapshot()
	info.Persistent, info.KeyValues = restored.Persistent, restored.KeyValues
	return item.Value, true
}

// Key builds a cache key for obj from its type and tracked key values.
func (c *ObjectCache) Key(obj interface{}) string {
	info := c.db.objectInfo(obj)
	names := make([]string, 0, len(info.KeyValues))
	for name := range info.KeyValues {
		names = append(names, name)
	}
	sort.Strings(names)

	values := []interface{}{model.TypeName(model.TypeOf(obj))}
	for _, name := range names {
		values = append(values, fmt.Sprintf("%s=%s", name, utils.ToStringKey(info.KeyValues[name])))
	}
	return utils.ToStringKey(values...)
}
