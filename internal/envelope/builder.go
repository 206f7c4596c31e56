package envelope

import (
	"time"

	daerrors "da/internal/errors"
)

// Builder assembles a Response.
type Builder struct {
	resp *Response
}

// New creates a builder with an empty envelope.
func New() *Builder {
	return &Builder{resp: &Response{SchemaVersion: CurrentSchemaVersion}}
}

// Data sets the payload.
func (b *Builder) Data(data interface{}) *Builder {
	b.resp.Data = data
	return b
}

func (b *Builder) meta() *Meta {
	if b.resp.Meta == nil {
		b.resp.Meta = &Meta{}
	}
	return b.resp.Meta
}

// WithProvenance records what the result was computed from.
func (b *Builder) WithProvenance(p Provenance) *Builder {
	b.meta().Provenance = &p
	return b
}

// WithDuration records how long the computation took.
func (b *Builder) WithDuration(d time.Duration) *Builder {
	b.meta().DurationMs = d.Milliseconds()
	return b
}

// WithTruncation adds truncation info. Nothing is recorded unless truncated.
func (b *Builder) WithTruncation(truncated bool, shown, total int, reason string) *Builder {
	if !truncated {
		return b
	}
	b.meta().Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
		Reason:      reason,
	}
	return b
}

// Warning adds a warning message.
func (b *Builder) Warning(msg string) *Builder {
	return b.WarningWithCode("", msg)
}

// WarningWithCode adds a warning with a machine-readable code.
func (b *Builder) WarningWithCode(code, msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: msg})
	return b
}

// Suggest adds a follow-up call.
func (b *Builder) Suggest(tool, reason string, params map[string]interface{}) *Builder {
	b.resp.SuggestedNextCalls = append(b.resp.SuggestedNextCalls, SuggestedCall{
		Tool:   tool,
		Params: params,
		Reason: reason,
	})
	return b
}

// Error records a failure. Typed errors keep their code, stage and fixes;
// anything else is reported as an internal error.
func (b *Builder) Error(err error) *Builder {
	if err == nil {
		return b
	}
	if de, ok := daerrors.As(err); ok {
		b.resp.Error = &ErrorInfo{
			Code:           de.Code,
			Stage:          de.Stage,
			Message:        de.Error(),
			Details:        de.Details,
			SuggestedFixes: de.SuggestedFixes,
		}
		return b
	}
	b.resp.Error = &ErrorInfo{Code: daerrors.InternalError, Message: err.Error()}
	return b
}

// Build returns the envelope.
func (b *Builder) Build() *Response {
	return b.resp
}

// Operational wraps data without metadata.
func Operational(data interface{}) *Response {
	return New().Data(data).Build()
}
