package generators

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// GenerateError reports a precondition violation found while generating a
// file: an unresolved reference, an unmapped type or a malformed definition
// that validation should have rejected. A file that fails produces no output.
type GenerateError struct {
	File   string
	Entity string
	Detail string
}

func (e *GenerateError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s.slice: %s: %s", e.File, e.Entity, e.Detail)
	}
	return fmt.Sprintf("%s.slice: %s", e.File, e.Detail)
}

// IsGenerateError reports whether err wraps a *GenerateError.
func IsGenerateError(err error) bool {
	var ge *GenerateError
	return errors.As(err, &ge)
}

// recoverGenerateError converts a *GenerateError panic into err. Other panics
// are re-raised.
func recoverGenerateError(err *error) {
	r := recover()
	if r == nil {
		return
	}
	ge, ok := r.(*GenerateError)
	if !ok {
		panic(r)
	}
	*err = errors.WithHint(ge, "run `slicec-cs validate` on the input; the definitions were not checked before generation")
}
