package candidate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
)

const crossPlan = `
type: hybrid
mode: cross
parts:
  - type: rules
    wordlist: short.txt
    rules: basic.rule
  - type: mask
    mask: "?1?d"
    charsets: ["!#"]
`

func TestParsePlan(t *testing.T) {
	spec, err := ParsePlan([]byte(crossPlan))
	require.NoError(t, err)

	assert.Equal(t, TypeHybrid, spec.Type)
	assert.Equal(t, HybridCross, spec.Mode)
	require.Len(t, spec.Parts, 2)
	assert.Equal(t, "basic.rule", spec.Parts[0].Rules)
	assert.Equal(t, []string{"!#"}, spec.Parts[1].Charsets)

	strategy, err := spec.Build()
	require.NoError(t, err)
	assert.Equal(t, "hybrid-cross(rules(short.txt x basic.rule), mask(?1?d))", strategy.Describe())

	got := enumerate(t, strategy, testSource(), 0)
	require.Len(t, got, 6*2*10)
	assert.Equal(t, "ab!0", got[0])
	assert.Equal(t, "cd1#9", got[len(got)-1])
}

func TestPlanIncrement(t *testing.T) {
	spec, err := ParsePlan([]byte("type: mask\nmask: \"?d?d?d\"\nincrement:\n  min: 2\n  max: 3\n"))
	require.NoError(t, err)

	strategy, err := spec.Build()
	require.NoError(t, err)

	size, err := Keyspace(strategy, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), size.Int64())
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name string
		plan string
	}{
		{name: "not yaml", plan: "type: [unterminated"},
		{name: "missing type", plan: "wordlist: words.txt"},
		{name: "unknown type", plan: "type: prince"},
		{name: "dictionary without wordlist", plan: "type: dictionary"},
		{name: "rules without rule file", plan: "type: rules\nwordlist: words.txt"},
		{name: "bad mask", plan: "type: mask\nmask: \"?z\""},
		{name: "cross with three parts", plan: `
type: hybrid
mode: cross
parts:
  - {type: mask, mask: "?d"}
  - {type: mask, mask: "?d"}
  - {type: mask, mask: "?d"}
`},
		{name: "negative min length", plan: "type: mask\nmask: \"?d\"\nmin_length: -1"},
		{name: "max below min", plan: "type: mask\nmask: \"?d\"\nmin_length: 8\nmax_length: 4"},
		{name: "bounded hybrid part", plan: `
type: hybrid
parts:
  - {type: mask, mask: "?d", min_length: 2}
  - {type: mask, mask: "?d"}
`},
		{name: "bad nested part", plan: `
type: hybrid
parts:
  - {type: mask, mask: "?d"}
  - {type: dictionary}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlan([]byte(tt.plan))
			require.ErrorIs(t, err, cserrors.ErrUnsupportedStrategy)
		})
	}
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("type: dictionary\nwordlist: rockyou.txt\n"), 0o600))

	spec, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, Spec{Type: TypeDictionary, Wordlist: "rockyou.txt"}, spec)

	_, err = LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSpecJSONShape(t *testing.T) {
	spec, err := ParsePlan([]byte(crossPlan))
	require.NoError(t, err)

	data, err := json.Marshal(spec)
	require.NoError(t, err)

	var back Spec
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, spec, back)
	assert.NotContains(t, string(data), "increment")
}

func TestPlanLengthBounds(t *testing.T) {
	spec, err := ParsePlan([]byte("type: mask\nmask: \"?d?d?d\"\nincrement: {min: 1, max: 3}\nmin_length: 2\nmax_length: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, spec.MinLength)
	assert.Equal(t, 2, spec.MaxLength)
	assert.True(t, spec.Bounded())

	data, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"min_length":2`)
	assert.Contains(t, string(data), `"max_length":2`)
}

func TestSpecAccepts(t *testing.T) {
	tests := []struct {
		name      string
		spec      Spec
		candidate string
		want      bool
	}{
		{name: "unbounded", spec: Spec{}, candidate: "", want: true},
		{name: "below min", spec: Spec{MinLength: 8}, candidate: "short", want: false},
		{name: "at min", spec: Spec{MinLength: 5}, candidate: "short", want: true},
		{name: "open max", spec: Spec{MinLength: 1}, candidate: "a very long passphrase", want: true},
		{name: "above max", spec: Spec{MinLength: 8, MaxLength: 20}, candidate: "twenty-one characters", want: false},
		{name: "at max", spec: Spec{MaxLength: 20}, candidate: "twenty characters ok", want: true},
		{name: "runes not bytes", spec: Spec{MaxLength: 4}, candidate: "äöüß", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.Accepts(tt.candidate))
		})
	}
}
