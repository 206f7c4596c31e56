package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	daerrors "da/internal/errors"
	"da/internal/metrics"
)

const sampleRules = `
[[rule]]
name = "shallow hierarchies"
metric = "in_depth"
max = 1

[[rule]]
name = "stable shapes"
metric = "instability"
max = 0.5
types = ["shapes.*"]

[[rule]]
metric = "workload"
min = 0.1
max = 0.9
types = ["Circle"]
`

var records = []metrics.Record{
	{Name: "shapes.Circle", SimpleName: "Circle", InDepth: 2, Instability: 0.75, Workload: 0.95},
	{Name: "shapes.Shape", SimpleName: "Shape", InDepth: 0, Instability: 0.25, Workload: 0.05},
	{Name: "other.Util", SimpleName: "Util", InDepth: 3, Instability: 1},
}

func TestParse(t *testing.T) {
	rs, err := Parse(sampleRules)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 3)

	assert.Equal(t, "shallow hierarchies", rs.Rules[0].Name)
	require.NotNil(t, rs.Rules[0].Max)
	assert.Equal(t, 1.0, *rs.Rules[0].Max)
	assert.Nil(t, rs.Rules[0].Min)
	assert.Equal(t, "rule 3 (workload)", rs.Rules[2].Name)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown metric", "[[rule]]\nmetric = \"depth\"\nmax = 1\n", "Rules[0].Metric"},
		{"missing metric", "[[rule]]\nmax = 1\n", "Rules[0].Metric"},
		{"no bound", "[[rule]]\nmetric = \"workload\"\n", "Rules[0].Max"},
		{"negative bound", "[[rule]]\nmetric = \"workload\"\nmax = -1.0\n", "Rules[0].Max"},
		{"min above max", "[[rule]]\nmetric = \"workload\"\nmin = 0.8\nmax = 0.2\n", "greater than max"},
		{"bad glob", "[[rule]]\nmetric = \"workload\"\nmax = 1\ntypes = [\"[\"]\n", "bad type pattern"},
		{"unknown key", "[[rule]]\nmetric = \"workload\"\nmax = 1\nlimit = 3\n", "unknown keys"},
		{"not toml", "[[rule", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEvaluate(t *testing.T) {
	rs, err := Parse(sampleRules)
	require.NoError(t, err)

	violations := rs.Evaluate(records)
	require.Len(t, violations, 4)

	assert.Equal(t, Violation{
		Rule: "shallow hierarchies", Metric: MetricInDepth, Type: "shapes.Circle", SimpleName: "Circle",
		Value: 2, Bound: "max", Limit: 1,
	}, violations[1])
	assert.Equal(t, "other.Util", violations[0].Type)

	var got []string
	for _, v := range violations {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{
		"shallow hierarchies: other.Util in_depth = 3 > 1",
		"shallow hierarchies: shapes.Circle in_depth = 2 > 1",
		"stable shapes: shapes.Circle instability = 0.75 > 0.5",
		"rule 3 (workload): shapes.Circle workload = 0.95 > 0.9",
	}, got)
}

func TestRule_Matches(t *testing.T) {
	r := Rule{Types: []string{"shapes.C*", "Util"}}
	assert.True(t, r.Matches(records[0]))
	assert.False(t, r.Matches(records[1]))
	assert.True(t, r.Matches(records[2]))
	assert.True(t, (&Rule{}).Matches(records[1]))
}

func TestViolationError(t *testing.T) {
	assert.NoError(t, ViolationError(nil))

	err := ViolationError([]Violation{{Rule: "r", Type: "p.A"}})
	require.Error(t, err)
	assert.True(t, daerrors.IsCode(err, daerrors.RuleViolation))
	de, ok := daerrors.As(err)
	require.True(t, ok)
	assert.Len(t, de.Details, 1)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "rules.toml")
	require.NoError(t, os.WriteFile(file, []byte(sampleRules), 0o644))

	rs, err := Load(file)
	require.NoError(t, err)
	assert.Len(t, rs.Rules, 3)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.True(t, daerrors.IsCode(err, daerrors.IOError))

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[[rule]]\nmetric = \"x\"\n"), 0o644))
	_, err = Load(bad)
	assert.True(t, daerrors.IsCode(err, daerrors.ConfigInvalid))
}
