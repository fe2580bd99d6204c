package adapter

import "fmt"

// ConfigurationError reports a setting that makes the requested operation
// impossible, naming the component whose configuration is at fault. It is
// never worked around silently: an empty validation key, for one, must
// not degrade to unsigned cookies.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is misconfigured: %s", e.Component, e.Reason)
}

// StructuralError reports framework-side structures the adapter cannot
// represent: a broken file-stream descriptor, upload fields nested beyond
// the limit, or conflicting upload field shapes.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "malformed structure: " + e.Reason
}

// RangeError reports a file-stream descriptor whose range violates
// 0 <= Begin <= End, carrying both bounds.
type RangeError struct {
	Begin, End int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid stream range: begin=%d, end=%d", e.Begin, e.End)
}

// IOError reports a failed read on a body or file stream. The cause is
// preserved for unwrapping.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// BodyParseError wraps a body parser failure together with the media type
// the parser was selected for.
type BodyParseError struct {
	MediaType string
	Err       error
}

func (e *BodyParseError) Error() string {
	return fmt.Sprintf("parsing %s body: %s", e.MediaType, e.Err)
}

func (e *BodyParseError) Unwrap() error {
	return e.Err
}
