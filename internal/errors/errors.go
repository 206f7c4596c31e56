package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// IOError indicates the input path is missing, unreadable or not a directory
	IOError ErrorCode = "IO_ERROR"
	// ResolutionError indicates an artifact could not be resolved into a type descriptor
	ResolutionError ErrorCode = "RESOLUTION_ERROR"
	// EmptyProject indicates there are no types to compute metrics over
	EmptyProject ErrorCode = "EMPTY_PROJECT"
	// ConfigInvalid indicates a configuration value failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// RuleViolation indicates at least one metric rule was violated
	RuleViolation ErrorCode = "RULE_VIOLATION"
	// StorageError indicates the snapshot store failed
	StorageError ErrorCode = "STORAGE_ERROR"
	// ExportError indicates the graph export failed
	ExportError ErrorCode = "EXPORT_ERROR"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageLoad    Stage = "load"
	StageCompute Stage = "compute"
	StageRender  Stage = "render"
	StageCheck   Stage = "check"
	StageStore   Stage = "store"
	StageExport  Stage = "export"
	StageConfig  Stage = "config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Command     string `json:"command,omitempty"`
	Description string `json:"description"`
}

// DaError represents an analyzer error with code, stage, message, and suggestions
type DaError struct {
	Code           ErrorCode   `json:"code"`
	Stage          Stage       `json:"stage"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new DaError. Suggested fixes are filled in from ErrorActions.
func New(code ErrorCode, stage Stage, message string, cause error) *DaError {
	return &DaError{
		Code:           code,
		Stage:          stage,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *DaError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s failed: [%s] %s: %v", e.Stage, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s failed: [%s] %s", e.Stage, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DaError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *DaError) WithDetails(details interface{}) *DaError {
	e.Details = details
	return e
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	IOError: {
		{Description: "Pass the directory that holds the package's .class files"},
	},
	ResolutionError: {
		{
			Command:     "da <path> --classpath <dir-or-jar>",
			Description: "Add the directories or jars that define the missing types",
		},
		{Description: "Run without --strict to stop depth counting at unresolved supertypes"},
	},
	EmptyProject: {
		{Description: "Check that the directory contains compiled classes (or use --source for .java files)"},
	},
	ConfigInvalid: {
		{Description: "Fix the value in .da.yaml or the matching DA_ environment variable"},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}

// As returns the first DaError in err's chain.
func As(err error) (*DaError, bool) {
	var de *DaError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	de, ok := As(err)
	return ok && de.Code == code
}
