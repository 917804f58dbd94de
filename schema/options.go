package schema

// Options controls how loosely names are matched against the schema.
type Options struct {
	// StrictTableMatching disables the substring scan for tables.
	StrictTableMatching bool
	// StrictColumnMatching disables the substring scan for columns.
	StrictColumnMatching bool

	TablePrefixes  []string
	TableSuffixes  []string
	ColumnPrefixes []string
	ColumnSuffixes []string

	// TableTypes filters Introspector.Tables, {"TABLE", "VIEW"} by default.
	TableTypes []string
}

// DefaultOptions matches tables loosely and columns strictly.
func DefaultOptions() Options {
	return Options{
		StrictColumnMatching: true,
		TableTypes:           []string{"TABLE", "VIEW"},
	}
}

func (o Options) stripTable(name string) string {
	return StripAffixes(name, o.TablePrefixes, o.TableSuffixes)
}

func (o Options) stripColumn(name string) string {
	return StripAffixes(name, o.ColumnPrefixes, o.ColumnSuffixes)
}

func (o Options) hasTableAffixes() bool {
	return len(o.TablePrefixes) > 0 || len(o.TableSuffixes) > 0
}

func (o Options) hasColumnAffixes() bool {
	return len(o.ColumnPrefixes) > 0 || len(o.ColumnSuffixes) > 0
}
