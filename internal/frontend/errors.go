package frontend

import (
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Load error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE file unreadable
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Definition shape errors
	ErrCodeDefinitionKind = "E101" // Missing or ambiguous entity kind
	ErrCodeDefinitionName = "E102" // Missing or malformed name
	ErrCodeInvalidType    = "E103" // Malformed type string
	ErrCodeInvalidValue   = "E104" // Wrong CUE kind for a field
)

// Validation error codes.
const (
	ErrDuplicateDefinition = "E201" // two entities share a scoped identifier
	ErrUnresolvedReference = "E202" // type, base or raises name does not resolve
	ErrInheritanceCycle    = "E203" // class, exception or interface inherits from itself
	ErrWrongBaseKind       = "E204" // base is not of the entity's kind
	ErrDuplicateMember     = "E205" // field, parameter, operation or enumerator name repeated
	ErrDuplicateTag        = "E206" // tag repeated within one member list
	ErrTaggedNotOptional   = "E207" // tagged member with a non-optional type
	ErrCompactTagged       = "E208" // compact struct with tagged fields
	ErrEnumUnderlying      = "E209" // enum underlying type is not integral
	ErrEnumeratorRange     = "E210" // enumerator value outside the underlying range
	ErrDuplicateEnumerator = "E211" // two enumerators share a value
	ErrOperationConflict   = "E212" // inherited operations with the same name
	ErrRaisesNotException  = "E213" // raises-list names a non-exception
	ErrInvalidDictionary   = "E214" // dictionary key type is not allowed
	ErrMissingModule       = "E215" // declarations outside a module
	ErrDuplicateCompactID  = "E216" // two classes share a compact type ID
	ErrEmptyEnum           = "E217" // checked enum without enumerators
)

// LoadError represents an error that occurred while reading Slice sources.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CompileError represents a malformed definition with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError is a semantic error found after all files are compiled.
type ValidationError struct {
	File    string `json:"file"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("[%s] %s.slice: %s: %s", e.Code, e.File, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// codeForField maps a CompileError field to a load error code.
func codeForField(field string) string {
	switch field {
	case "kind":
		return ErrCodeDefinitionKind
	case "name":
		return ErrCodeDefinitionName
	case "type":
		return ErrCodeInvalidType
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeInvalidValue
	}
}
