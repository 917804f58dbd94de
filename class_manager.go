package automap

import (
	"reflect"
	"strings"
	"sync"

	"github.com/automap-go/automap/model"
	"github.com/automap-go/automap/utils"
)

// ClassInformation is the mapping configuration of one type. Nil
// tri-state fields fall back to the manager defaults.
type ClassInformation struct {
	TableName          string
	ColumnNames        map[string]string // property -> column
	IgnoreAssociations *bool
	LazyLoading        *bool
	ReloadAfterSave    *bool
	IncludeNulls       map[string]bool // properties whose nil values become "is null" conditions
}

func (ci *ClassInformation) clone() *ClassInformation {
	c := *ci
	c.ColumnNames = make(map[string]string, len(ci.ColumnNames))
	for k, v := range ci.ColumnNames {
		c.ColumnNames[k] = v
	}
	c.IncludeNulls = make(map[string]bool, len(ci.IncludeNulls))
	for k, v := range ci.IncludeNulls {
		c.IncludeNulls[k] = v
	}
	return &c
}

// ClassManager holds ClassInformation per type. It is safe for
// concurrent use.
type ClassManager struct {
	mu      sync.RWMutex
	classes map[reflect.Type]*ClassInformation

	ignoreAssociations bool
	lazyLoading        bool
	reloadAfterSave    bool
}

// DefaultClasses is used by every DB whose Config has no Classes.
var DefaultClasses = NewClassManager()

func NewClassManager() *ClassManager {
	return &ClassManager{
		classes:         map[reflect.Type]*ClassInformation{},
		lazyLoading:     true,
		reloadAfterSave: true,
	}
}

func (m *ClassManager) update(value interface{}, fc func(*ClassInformation)) {
	t := model.TypeOf(value)
	m.mu.Lock()
	defer m.mu.Unlock()

	ci, ok := m.classes[t]
	if ok {
		ci = ci.clone()
	} else {
		ci = &ClassInformation{ColumnNames: map[string]string{}, IncludeNulls: map[string]bool{}}
	}
	fc(ci)
	m.classes[t] = ci
}

// Info returns the configuration registered for the type of value, or
// nil.
func (m *ClassManager) Info(value interface{}) *ClassInformation {
	t := model.TypeOf(value)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.classes[t]
}

// Remove forgets everything registered for the type of value.
func (m *ClassManager) Remove(value interface{}) {
	t := model.TypeOf(value)
	m.mu.Lock()
	delete(m.classes, t)
	m.mu.Unlock()
}

// SetTableMapping maps the type of value to table.
func (m *ClassManager) SetTableMapping(value interface{}, table string) {
	m.update(value, func(ci *ClassInformation) { ci.TableName = table })
}

// TableMapping returns the table configured for t.
func (m *ClassManager) TableMapping(t reflect.Type) string {
	if ci := m.Info(t); ci != nil {
		return ci.TableName
	}
	return ""
}

// SetColumnMapping maps properties of the type of value to columns.
func (m *ClassManager) SetColumnMapping(value interface{}, columns map[string]string) {
	m.update(value, func(ci *ClassInformation) {
		for property, column := range columns {
			ci.ColumnNames[property] = column
		}
	})
}

// ColumnMapping returns the column configured for property. The lookup
// tries the name as given, then with a lowercase first letter, then
// fully lowercased.
func (m *ClassManager) ColumnMapping(t reflect.Type, property string) string {
	ci := m.Info(t)
	if ci == nil || len(ci.ColumnNames) == 0 {
		return ""
	}
	for _, name := range []string{property, utils.LowerFirst(property), strings.ToLower(property)} {
		if column, ok := ci.ColumnNames[name]; ok {
			return column
		}
	}
	return ""
}

// PropertyMapping returns the property mapped to column.
func (m *ClassManager) PropertyMapping(t reflect.Type, column string) string {
	ci := m.Info(t)
	if ci == nil {
		return ""
	}
	for property, c := range ci.ColumnNames {
		if strings.EqualFold(c, column) {
			return property
		}
	}
	return ""
}

// SetNullValuesToInclude lists properties whose nil values become "is
// null" conditions of queries by example. Inserts never bind nil values.
func (m *ClassManager) SetNullValuesToInclude(value interface{}, properties ...string) {
	m.update(value, func(ci *ClassInformation) {
		for _, p := range properties {
			ci.IncludeNulls[utils.LowerFirst(p)] = true
		}
	})
}

// ClearNullValuesToInclude empties the null list of the type of value.
func (m *ClassManager) ClearNullValuesToInclude(value interface{}) {
	m.update(value, func(ci *ClassInformation) { ci.IncludeNulls = map[string]bool{} })
}

func (m *ClassManager) IncludesNull(t reflect.Type, property string) bool {
	if ci := m.Info(t); ci != nil {
		return ci.IncludeNulls[utils.LowerFirst(property)]
	}
	return false
}

func (m *ClassManager) SetIgnoreAssociations(value interface{}, ignore bool) {
	m.update(value, func(ci *ClassInformation) { ci.IgnoreAssociations = &ignore })
}

func (m *ClassManager) SetLazyLoading(value interface{}, lazy bool) {
	m.update(value, func(ci *ClassInformation) { ci.LazyLoading = &lazy })
}

func (m *ClassManager) SetReloadAfterSave(value interface{}, reload bool) {
	m.update(value, func(ci *ClassInformation) { ci.ReloadAfterSave = &reload })
}

// SetDefaultIgnoreAssociations sets the default for types without their
// own setting. The other defaults follow the same rule.
func (m *ClassManager) SetDefaultIgnoreAssociations(ignore bool) {
	m.mu.Lock()
	m.ignoreAssociations = ignore
	m.mu.Unlock()
}

func (m *ClassManager) SetDefaultLazyLoading(lazy bool) {
	m.mu.Lock()
	m.lazyLoading = lazy
	m.mu.Unlock()
}

func (m *ClassManager) SetDefaultReloadAfterSave(reload bool) {
	m.mu.Lock()
	m.reloadAfterSave = reload
	m.mu.Unlock()
}

func (m *ClassManager) IgnoreAssociations(t reflect.Type) bool {
	return m.flag(t, func(ci *ClassInformation) *bool { return ci.IgnoreAssociations }, &m.ignoreAssociations)
}

func (m *ClassManager) LazyLoading(t reflect.Type) bool {
	return m.flag(t, func(ci *ClassInformation) *bool { return ci.LazyLoading }, &m.lazyLoading)
}

func (m *ClassManager) ReloadAfterSave(t reflect.Type) bool {
	return m.flag(t, func(ci *ClassInformation) *bool { return ci.ReloadAfterSave }, &m.reloadAfterSave)
}

func (m *ClassManager) flag(t reflect.Type, get func(*ClassInformation) *bool, def *bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ci := m.classes[model.TypeOf(t)]; ci != nil {
		if v := get(ci); v != nil {
			return *v
		}
	}
	return *def
}
