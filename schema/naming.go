package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	smap sync.Map
	// https://github.com/golang/lint/blob/master/lint.go#L770
	commonInitialisms         = []string{"API", "ASCII", "CPU", "CSS", "DNS", "EOF", "GUID", "HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "LHS", "QPS", "RAM", "RHS", "RPC", "SLA", "SMTP", "SSH", "TLS", "TTL", "UID", "UI", "UUID", "URI", "URL", "UTF8", "VM", "XML", "XSRF", "XSS"}
	commonInitialismsReplacer *strings.Replacer

	lowerCasers = sync.Pool{New: func() any { c := cases.Lower(language.Und); return &c }}
	upperCasers = sync.Pool{New: func() any { c := cases.Upper(language.Und); return &c }}
)

func init() {
	title := cases.Title(language.Und)
	var commonInitialismsForReplacer []string
	for _, initialism := range commonInitialisms {
		commonInitialismsForReplacer = append(commonInitialismsForReplacer, initialism, title.String(initialism))
	}
	commonInitialismsReplacer = strings.NewReplacer(commonInitialismsForReplacer...)
}

func lower(s string) string {
	c := lowerCasers.Get().(*cases.Caser)
	defer lowerCasers.Put(c)
	c.Reset()
	return c.String(s)
}

func upper(s string) string {
	c := upperCasers.Get().(*cases.Caser)
	defer upperCasers.Put(c)
	c.Reset()
	return c.String(s)
}

// Normalize strips underscores and lowercases name. Two identifiers are
// considered the same table or column when their normalized forms match.
func Normalize(name string) string {
	return lower(strings.ReplaceAll(name, "_", ""))
}

// CamelToUnderscore converts a Go identifier into its snake_case form,
// keeping common initialisms together: CustomerID becomes customer_id.
func CamelToUnderscore(name string) string {
	if name == "" {
		return ""
	} else if v, ok := smap.Load(name); ok {
		return fmt.Sprint(v)
	}

	var (
		value                          = commonInitialismsReplacer.Replace(name)
		buf                            strings.Builder
		lastCase, nextCase, nextNumber bool // upper case == true
		curCase                        = value[0] <= 'Z' && value[0] >= 'A'
	)

	for i, v := range value[:len(value)-1] {
		nextCase = value[i+1] <= 'Z' && value[i+1] >= 'A'
		nextNumber = value[i+1] >= '0' && value[i+1] <= '9'

		if curCase {
			if lastCase && (nextCase || nextNumber) {
				buf.WriteRune(v + 32)
			} else {
				if i > 0 && value[i-1] != '_' && value[i+1] != '_' {
					buf.WriteByte('_')
				}
				buf.WriteRune(v + 32)
			}
		} else {
			buf.WriteRune(v)
		}

		lastCase = curCase
		curCase = nextCase
	}

	if curCase {
		if !lastCase && len(value) > 1 {
			buf.WriteByte('_')
		}
		buf.WriteByte(value[len(value)-1] + 32)
	} else {
		buf.WriteByte(value[len(value)-1])
	}

	result := buf.String()
	smap.Store(name, result)
	return result
}

// Pluralize returns the distinct plural candidates for name, dictionary
// form first. Company gives Companies, Box gives Boxes, Order gives Orders.
func Pluralize(name string) []string {
	if name == "" {
		return nil
	}

	candidates := make([]string, 0, 2)
	for _, plural := range []string{inflection.Plural(name), pluralRule(name)} {
		if plural != "" && plural != name && !containsString(candidates, plural) {
			candidates = append(candidates, plural)
		}
	}
	return candidates
}

func pluralRule(name string) string {
	var (
		l      = strings.ToLower(name)
		shout  = name == strings.ToUpper(name)
		suffix = func(s string) string {
			if shout {
				return strings.ToUpper(s)
			}
			return s
		}
	)

	switch {
	case strings.HasSuffix(l, "y") && len(l) > 1 && !strings.ContainsRune("aeiou", rune(l[len(l)-2])):
		return name[:len(name)-1] + suffix("ies")
	case strings.HasSuffix(l, "s"), strings.HasSuffix(l, "x"), strings.HasSuffix(l, "z"),
		strings.HasSuffix(l, "ch"), strings.HasSuffix(l, "sh"):
		return name + suffix("es")
	default:
		return name + suffix("s")
	}
}

// CaseVariants returns name as given, uppercased and lowercased, without
// repeats. Catalog searches try each in turn because engines differ in
// how they store unquoted identifiers.
func CaseVariants(name string) []string {
	variants := []string{name}
	for _, v := range []string{upper(name), lower(name)} {
		if !containsString(variants, v) {
			variants = append(variants, v)
		}
	}
	return variants
}

// StripAffixes removes the first matching prefix and then the first
// matching suffix, both compared case-insensitively. An affix is only
// removed when name is longer than it.
func StripAffixes(name string, prefixes, suffixes []string) string {
	l := strings.ToLower(name)
	for _, prefix := range prefixes {
		if prefix != "" && len(name) > len(prefix) && strings.HasPrefix(l, strings.ToLower(prefix)) {
			name, l = name[len(prefix):], l[len(prefix):]
			break
		}
	}

	for _, suffix := range suffixes {
		if suffix != "" && len(name) > len(suffix) && strings.HasSuffix(l, strings.ToLower(suffix)) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	return name
}

func containsString(elems []string, elem string) bool {
	for _, e := range elems {
		if e == elem {
			return true
		}
	}
	return false
}
