package sindex

import (
	"fmt"

	"github.com/avdolov/sindex/internal/store"
)

// SchemaError reports an index database written by an incompatible earlier
// version. The only recovery is rebuilding the index.
type SchemaError = store.SchemaError

// ConfigError reports a malformed option value, echoing the offending input.
type ConfigError struct {
	Option string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s value %q: %s", e.Option, e.Value, e.Reason)
}

// FormatError reports a malformed output format template.
type FormatError struct {
	Template string
	Pos      int
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid format string %q at offset %d: %s", e.Template, e.Pos, e.Reason)
}
