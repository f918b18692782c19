// Package errdefs holds the error types returned by the code generation engine.
// Every generation failure is one of these, wrapped in a ComponentError carrying
// the label of the component being generated.
package errdefs

import (
	"errors"
	"fmt"
)

// ManifestError reports a structurally invalid manifest: a kind mismatch,
// a missing field, or duplicate names.
type ManifestError struct {
	Field  string
	Reason string
}

func (e *ManifestError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid manifest: %s", e.Reason)
	}
	return fmt.Sprintf("invalid manifest: %s: %s", e.Field, e.Reason)
}

// SignatureParseError reports a method signature that could not be parsed,
// or a schema reference that could not be resolved.
type SignatureParseError struct {
	Signature string
	Fragment  string
	Reason    string
}

func (e *SignatureParseError) Error() string {
	if e.Fragment != "" && e.Fragment != e.Signature {
		return fmt.Sprintf("invalid signature '%s' at '%s': %s", e.Signature, e.Fragment, e.Reason)
	}
	return fmt.Sprintf("invalid signature '%s': %s", e.Signature, e.Reason)
}

// UnsupportedTypeError reports a foreign type with no mapping into Go.
type UnsupportedTypeError struct {
	Type    string
	Context string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("unsupported type '%s'", e.Type)
	}
	return fmt.Sprintf("unsupported type '%s' in %s", e.Type, e.Context)
}

// InterfaceResolutionError reports an interface file that is neither
// supplied by the project nor built in.
type InterfaceResolutionError struct {
	Name string
}

func (e *InterfaceResolutionError) Error() string {
	return fmt.Sprintf("interface file '%s' not found in project or built-in interfaces", e.Name)
}

// ConversionError reports a value or type that cannot be converted to the
// requested target type.
type ConversionError struct {
	From   string
	To     string
	Reason string
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ComponentError attaches the component label to a generation failure.
type ComponentError struct {
	Label string
	Err   error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("component '%s': %v", e.Label, e.Err)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}

// WithLabel wraps err in a ComponentError unless it already carries one.
func WithLabel(label string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ComponentError
	if errors.As(err, &ce) {
		return err
	}
	return &ComponentError{Label: label, Err: err}
}
