// Package rules checks metric records against threshold rules read from TOML:
//
//	[[rule]]
//	name = "shallow hierarchies"
//	metric = "in_depth"
//	max = 3
//	types = ["com.example.*"]
package rules

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	daerrors "da/internal/errors"
	"da/internal/metrics"
	"da/internal/output"
)

// Metric names accepted in rule files.
const (
	MetricInDepth        = "in_depth"
	MetricInstability    = "instability"
	MetricResponsibility = "responsibility"
	MetricWorkload       = "workload"
)

var validate = validator.New()

// Rule bounds one metric for the types matching Types. An empty Types list
// matches every type. Patterns match either the qualified or the simple name.
type Rule struct {
	Name   string   `toml:"name"`
	Metric string   `toml:"metric" validate:"required,oneof=in_depth instability responsibility workload"`
	Max    *float64 `toml:"max" validate:"required_without=Min,omitempty,gte=0"`
	Min    *float64 `toml:"min" validate:"omitempty,gte=0"`
	Types  []string `toml:"types" validate:"dive,required"`
}

// RuleSet is the content of a rules file.
type RuleSet struct {
	Rules []Rule `toml:"rule" validate:"dive"`
}

// Violation is one record outside a rule's bound.
type Violation struct {
	Rule       string  `json:"rule"`
	Metric     string  `json:"metric"`
	Type       string  `json:"type"`
	SimpleName string  `json:"simpleName"`
	Value      float64 `json:"value"`
	Bound      string  `json:"bound"` // "max" or "min"
	Limit      float64 `json:"limit"`
}

func (v Violation) String() string {
	op := ">"
	if v.Bound == "min" {
		op = "<"
	}
	return fmt.Sprintf("%s: %s %s = %s %s %s", v.Rule, v.Type, v.Metric,
		output.TrimFloat(v.Value, output.MaxPrecision), op, output.TrimFloat(v.Limit, output.MaxPrecision))
}

// Load reads and validates a rules file.
func Load(file string) (*RuleSet, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, daerrors.New(daerrors.IOError, daerrors.StageCheck, "cannot read rules file "+file, err)
	}
	rs, err := Parse(string(data))
	if err != nil {
		return nil, daerrors.New(daerrors.ConfigInvalid, daerrors.StageCheck, "invalid rules file "+file, err)
	}
	return rs, nil
}

// Parse decodes and validates rules from TOML text. Unknown keys are errors.
func Parse(data string) (*RuleSet, error) {
	var rs RuleSet
	md, err := toml.Decode(data, &rs)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks the struct constraints, the glob syntax and min <= max.
func (rs *RuleSet) Validate() error {
	if err := validate.Struct(rs); err != nil {
		return formatValidationError(err)
	}
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule %d (%s)", i+1, r.Metric)
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return fmt.Errorf("%s: min %v is greater than max %v", r.Name, *r.Min, *r.Max)
		}
		for _, p := range r.Types {
			if _, err := path.Match(p, ""); err != nil {
				return fmt.Errorf("%s: bad type pattern %q: %w", r.Name, p, err)
			}
		}
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := strings.TrimPrefix(e.Namespace(), "RuleSet.")
		switch e.Tag() {
		case "required", "required_without":
			return fmt.Errorf("%s: is required", field)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %q", field, e.Param(), e.Value())
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		default:
			return fmt.Errorf("%s: failed %s validation", field, e.Tag())
		}
	}
	return err
}

// Matches reports whether the rule applies to the record.
func (r *Rule) Matches(rec metrics.Record) bool {
	if len(r.Types) == 0 {
		return true
	}
	for _, p := range r.Types {
		if ok, _ := path.Match(p, rec.Name); ok {
			return true
		}
		if ok, _ := path.Match(p, rec.SimpleName); ok {
			return true
		}
	}
	return false
}

func metricValue(metric string, rec metrics.Record) float64 {
	switch metric {
	case MetricInDepth:
		return float64(rec.InDepth)
	case MetricInstability:
		return rec.Instability
	case MetricResponsibility:
		return rec.Responsibility
	default:
		return rec.Workload
	}
}

// Evaluate returns every violation, ordered by type then rule.
func (rs *RuleSet) Evaluate(records []metrics.Record) []Violation {
	var out []Violation
	for _, rec := range records {
		for i := range rs.Rules {
			r := &rs.Rules[i]
			if !r.Matches(rec) {
				continue
			}
			v := metricValue(r.Metric, rec)
			base := Violation{Rule: r.Name, Metric: r.Metric, Type: rec.Name, SimpleName: rec.SimpleName, Value: v}
			if r.Max != nil && v > *r.Max {
				base.Bound, base.Limit = "max", *r.Max
				out = append(out, base)
			}
			if r.Min != nil && v < *r.Min {
				base.Bound, base.Limit = "min", *r.Min
				out = append(out, base)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// ViolationError wraps violations as a RULE_VIOLATION error, or returns nil
// when there are none.
func ViolationError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d rule violation(s)", len(violations))
	return daerrors.New(daerrors.RuleViolation, daerrors.StageCheck, msg, nil).WithDetails(violations)
}
