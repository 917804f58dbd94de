package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAmbiguousMatch is matched by every *AmbiguityError.
var ErrAmbiguousMatch = errors.New("ambiguous match")

// AmbiguityError reports a search name that matched more than one table
// or column.
type AmbiguityError struct {
	Kind       string
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("%s %q is ambiguous, it matches %s; qualify the name, configure prefix/suffix stripping or an explicit %s mapping, or enable strict matching",
		e.Kind, e.Name, strings.Join(e.Candidates, ", "), e.Kind)
}

func (e *AmbiguityError) Is(target error) bool {
	return target == ErrAmbiguousMatch
}
