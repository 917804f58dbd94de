package automap

import (
	"reflect"
	"slices"
	"sync"
)

// lazyCollection is implemented by the collection types; associations
// of these types load on first access.
type lazyCollection interface {
	elemType() reflect.Type
	deferLoad(loader func() ([]reflect.Value, error))
	fill(items []reflect.Value)
	loadedItems() ([]reflect.Value, bool)
}

var lazyCollectionType = reflect.TypeOf((*lazyCollection)(nil)).Elem()

type collectionState uint8

const (
	// the zero state is an empty, loaded collection
	collectionLoaded collectionState = iota
	collectionUnloaded
)

// collection is the shared core: either unloaded with a loader, or
// loaded with items. The loader runs at most once.
type collection[T any] struct {
	mu      sync.Mutex
	state   collectionState
	loader  func() ([]reflect.Value, error)
	arrange func([]T) []T
	items   []T
	err     error
}

func (c *collection[T]) elemType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (c *collection[T]) deferLoad(loader func() ([]reflect.Value, error)) {
	c.deferLoadWith(loader, nil)
}

func (c *collection[T]) deferLoadWith(loader func() ([]reflect.Value, error), arrange func([]T) []T) {
	c.mu.Lock()
	c.state, c.loader, c.arrange, c.items, c.err = collectionUnloaded, loader, arrange, nil, nil
	c.mu.Unlock()
}

func convertItems[T any](values []reflect.Value) []T {
	elem := reflect.TypeOf((*T)(nil)).Elem()
	items := make([]T, 0, len(values))
	for _, v := range values {
		if elem.Kind() != reflect.Pointer && v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		items = append(items, v.Interface().(T))
	}
	return items
}

func (c *collection[T]) fill(values []reflect.Value) {
	c.fillWith(values, nil)
}

func (c *collection[T]) fillWith(values []reflect.Value, arrange func([]T) []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state, c.loader, c.err = collectionLoaded, nil, nil
	c.items = convertItems[T](values)
	if arrange != nil {
		c.items = arrange(c.items)
	}
}

// ensure runs the pending loader; callers hold c.mu.
func (c *collection[T]) ensure() {
	if c.state == collectionLoaded {
		return
	}
	values, err := c.loader()
	c.state, c.loader = collectionLoaded, nil
	if err != nil {
		c.err = err
		return
	}
	c.items = convertItems[T](values)
	if c.arrange != nil {
		c.items = c.arrange(c.items)
	}
}

func (c *collection[T]) loadedItems() ([]reflect.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != collectionLoaded {
		return nil, false
	}
	values := make([]reflect.Value, 0, len(c.items))
	for i := range c.items {
		v := reflect.ValueOf(&c.items[i]).Elem()
		if v.Kind() != reflect.Pointer {
			v = v.Addr()
		}
		values = append(values, v)
	}
	return values, true
}

// Loaded reports whether the items are materialized.
func (c *collection[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == collectionLoaded
}

// Load materializes the items, returning the error of the load.
func (c *collection[T]) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensure()
	return c.err
}

// Err returns the error of the load, if any.
func (c *collection[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *collection[T]) with(fc func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensure()
	fc()
}

// Len returns the number of items, loading them first.
func (c *collection[T]) Len() (n int) {
	c.with(func() { n = len(c.items) })
	return
}

// Items returns a copy of the items, loading them first.
func (c *collection[T]) Items() (items []T) {
	c.with(func() { items = slices.Clone(c.items) })
	return
}

// List is an ordered association collection.
type List[T any] struct {
	collection[T]
}

func (l *List[T]) At(i int) (v T) {
	l.with(func() { v = l.items[i] })
	return
}

func (l *List[T]) Append(items ...T) {
	l.with(func() { l.items = append(l.items, items...) })
}

func (l *List[T]) Set(i int, v T) {
	l.with(func() { l.items[i] = v })
}

func (l *List[T]) RemoveAt(i int) {
	l.with(func() { l.items = slices.Delete(l.items, i, i+1) })
}

func (l *List[T]) Clear() {
	l.with(func() { l.items = nil })
}

// Set is an association collection without duplicates, in insertion
// order.
type Set[T comparable] struct {
	collection[T]
}

func dedupe[T comparable](items []T) []T {
	seen := make(map[T]bool, len(items))
	out := items[:0]
	for _, v := range items {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func (s *Set[T]) fill(values []reflect.Value) { s.fillWith(values, dedupe[T]) }

func (s *Set[T]) deferLoad(loader func() ([]reflect.Value, error)) {
	s.deferLoadWith(loader, dedupe[T])
}

// Add adds v, reporting whether it was absent.
func (s *Set[T]) Add(v T) (added bool) {
	s.with(func() {
		if !slices.Contains(s.items, v) {
			s.items = append(s.items, v)
			added = true
		}
	})
	return
}

func (s *Set[T]) Contains(v T) (ok bool) {
	s.with(func() { ok = slices.Contains(s.items, v) })
	return
}

func (s *Set[T]) Remove(v T) (removed bool) {
	s.with(func() {
		if i := slices.Index(s.items, v); i >= 0 {
			s.items = slices.Delete(s.items, i, i+1)
			removed = true
		}
	})
	return
}

// Comparable is implemented by elements of a SortedSet.
type Comparable[T any] interface {
	Compare(other T) int
}

// SortedSet keeps its items ordered by their Compare method; items
// comparing equal are kept once.
type SortedSet[T Comparable[T]] struct {
	collection[T]
}

func sortItems[T Comparable[T]](items []T) []T {
	slices.SortStableFunc(items, func(a, b T) int { return a.Compare(b) })
	return slices.CompactFunc(items, func(a, b T) bool { return a.Compare(b) == 0 })
}

func (s *SortedSet[T]) fill(values []reflect.Value) { s.fillWith(values, sortItems[T]) }

func (s *SortedSet[T]) deferLoad(loader func() ([]reflect.Value, error)) {
	s.deferLoadWith(loader, sortItems[T])
}

// Add inserts v in order, reporting whether no equal item was present.
func (s *SortedSet[T]) Add(v T) (added bool) {
	s.with(func() {
		i, found := slices.BinarySearchFunc(s.items, v, func(a, b T) int { return a.Compare(b) })
		if !found {
			s.items = slices.Insert(s.items, i, v)
			added = true
		}
	})
	return
}

func (s *SortedSet[T]) At(i int) (v T) {
	s.with(func() { v = s.items[i] })
	return
}

// Queue is a first in, first out association collection.
type Queue[T any] struct {
	collection[T]
}

func (q *Queue[T]) Push(v T) {
	q.with(func() { q.items = append(q.items, v) })
}

// Pop removes and returns the head of the queue.
func (q *Queue[T]) Pop() (v T, ok bool) {
	q.with(func() {
		if len(q.items) > 0 {
			v, ok = q.items[0], true
			q.items = q.items[1:]
		}
	})
	return
}

func (q *Queue[T]) Peek() (v T, ok bool) {
	q.with(func() {
		if len(q.items) > 0 {
			v, ok = q.items[0], true
		}
	})
	return
}
