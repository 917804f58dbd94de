package automap

import (
	"reflect"
	"runtime"
	"strings"
	"sync"
	"unsafe"
	"weak"

	"github.com/automap-go/automap/model"
)

// ObjectInformation is the persistence state of one object: whether it
// is known to the database and the key values last confirmed for it.
// KeyValues is keyed by lowercased column name.
type ObjectInformation struct {
	Persistent bool
	KeyValues  map[string]interface{}
}

func (info *ObjectInformation) reset() {
	info.Persistent = false
	info.KeyValues = map[string]interface{}{}
}

func (info *ObjectInformation) keyValue(column string) (interface{}, bool) {
	v, ok := info.KeyValues[strings.ToLower(column)]
	return v, ok
}

func (info *ObjectInformation) setKeyValue(column string, value interface{}) {
	if info.KeyValues == nil {
		info.KeyValues = map[string]interface{}{}
	}
	info.KeyValues[strings.ToLower(column)] = value
}

func (info *ObjectInformation) snapshot() ObjectInformation {
	c := ObjectInformation{Persistent: info.Persistent, KeyValues: make(map[string]interface{}, len(info.KeyValues))}
	for k, v := range info.KeyValues {
		c.KeyValues[k] = v
	}
	return c
}

// Persistable objects carry their own persistence state and bypass the
// Tracker, usually by embedding PersistentObject.
type Persistable interface {
	ObjectInformation() *ObjectInformation
}

// PersistentObject holds persistence state inside the object:
//
//	type Customer struct {
//		automap.PersistentObject
//		ID   int
//		Name string
//	}
type PersistentObject struct {
	info ObjectInformation
}

func (p *PersistentObject) ObjectInformation() *ObjectInformation {
	if p.info.KeyValues == nil {
		p.info.KeyValues = map[string]interface{}{}
	}
	return &p.info
}

func init() {
	model.Framework(reflect.TypeOf(PersistentObject{}))
}

// Tracker stores ObjectInformation for objects that do not carry it.
// Objects are identified by pointer.
type Tracker interface {
	// Info returns the information of obj, creating it if needed.
	Info(obj interface{}) *ObjectInformation
	Lookup(obj interface{}) (*ObjectInformation, bool)
	Remove(obj interface{})
	Len() int
}

// DefaultTracker is shared by every DB whose Config has no Tracker, so
// objects keep their state across sessions.
var DefaultTracker Tracker = NewWeakTracker()

type trackKey struct {
	addr uintptr
	typ  reflect.Type
}

type trackEntry struct {
	ref  weak.Pointer[byte]
	info *ObjectInformation
}

type weakTracker struct {
	mu      sync.Mutex
	entries map[trackKey]*trackEntry
}

// NewWeakTracker returns a Tracker that does not keep objects alive.
// Entries of collected objects are evicted by a runtime cleanup. Tracked
// objects must be heap allocated.
func NewWeakTracker() Tracker {
	return &weakTracker{entries: map[trackKey]*trackEntry{}}
}

func trackIdentity(obj interface{}) (trackKey, *byte, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Type().Elem().Size() == 0 {
		return trackKey{}, nil, false
	}
	p := (*byte)(v.UnsafePointer())
	return trackKey{addr: uintptr(unsafe.Pointer(p)), typ: v.Type()}, p, true
}

func (w *weakTracker) Info(obj interface{}) *ObjectInformation {
	key, p, ok := trackIdentity(obj)
	if !ok {
		return &ObjectInformation{KeyValues: map[string]interface{}{}}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[key]; ok && e.ref.Value() == p {
		return e.info
	}

	e := &trackEntry{ref: weak.Make(p), info: &ObjectInformation{KeyValues: map[string]interface{}{}}}
	w.entries[key] = e
	runtime.AddCleanup(p, w.evict, trackCleanup{key: key, entry: e})
	return e.info
}

type trackCleanup struct {
	key   trackKey
	entry *trackEntry
}

// evict runs after the object died; a newer entry at the same address is
// left alone.
func (w *weakTracker) evict(c trackCleanup) {
	w.mu.Lock()
	if w.entries[c.key] == c.entry {
		delete(w.entries, c.key)
	}
	w.mu.Unlock()
}

func (w *weakTracker) Lookup(obj interface{}) (*ObjectInformation, bool) {
	key, p, ok := trackIdentity(obj)
	if !ok {
		return nil, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[key]; ok && e.ref.Value() == p {
		return e.info, true
	}
	return nil, false
}

func (w *weakTracker) Remove(obj interface{}) {
	key, _, ok := trackIdentity(obj)
	if !ok {
		return
	}
	w.mu.Lock()
	delete(w.entries, key)
	w.mu.Unlock()
}

func (w *weakTracker) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// objectInfo returns the persistence state of obj, a pointer.
func (db *DB) objectInfo(obj interface{}) *ObjectInformation {
	if p, ok := obj.(Persistable); ok {
		return p.ObjectInformation()
	}
	return db.Tracker.Info(obj)
}

func (db *DB) forget(obj interface{}) {
	if p, ok := obj.(Persistable); ok {
		p.ObjectInformation().reset()
		return
	}
	db.Tracker.Remove(obj)
}

// IsPersistent reports whether obj was loaded from or stored into the
// database and not deleted since.
func (db *DB) IsPersistent(obj interface{}) bool {
	if p, ok := obj.(Persistable); ok {
		return p.ObjectInformation().Persistent
	}
	info, ok := db.Tracker.Lookup(obj)
	return ok && info.Persistent
}

// Detach forgets the persistence state of obj. A later save inserts it.
func (db *DB) Detach(obj interface{}) {
	db.forget(obj)
}
