// Package envelope provides the response wrapper for MCP tool results and
// structured CLI output. Every response carries the payload plus metadata
// about the analyzed package, warnings, a typed error and follow-up calls.
package envelope

import (
	daerrors "da/internal/errors"
)

// Provenance describes what the result was computed from.
type Provenance struct {
	Package       string `json:"package,omitempty"`
	SourcePath    string `json:"sourcePath,omitempty"`
	InterfaceMode string `json:"interfaceMode,omitempty"`
	// RunID is set when the result was stored in or read from the history.
	RunID string `json:"runId,omitempty"`
}

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`
	Total       int    `json:"total,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Meta holds response metadata.
type Meta struct {
	Provenance *Provenance `json:"provenance,omitempty"`
	Truncation *Truncation `json:"truncation,omitempty"`
	DurationMs int64       `json:"durationMs,omitempty"`
}

// SuggestedCall represents a recommended follow-up tool call.
type SuggestedCall struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params,omitempty"`
	Reason string                 `json:"reason,omitempty"`
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorInfo is the serialized form of a failure.
type ErrorInfo struct {
	Code           daerrors.ErrorCode   `json:"code"`
	Stage          daerrors.Stage       `json:"stage,omitempty"`
	Message        string               `json:"message"`
	Details        interface{}          `json:"details,omitempty"`
	SuggestedFixes []daerrors.FixAction `json:"suggestedFixes,omitempty"`
}

// Response is the standard envelope.
type Response struct {
	SchemaVersion      string          `json:"schemaVersion"`
	Data               interface{}     `json:"data"`
	Meta               *Meta           `json:"meta,omitempty"`
	Warnings           []Warning       `json:"warnings,omitempty"`
	Error              *ErrorInfo      `json:"error,omitempty"`
	SuggestedNextCalls []SuggestedCall `json:"suggestedNextCalls,omitempty"`
}

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"
