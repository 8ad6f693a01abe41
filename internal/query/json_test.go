package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_SingleQualifier(t *testing.T) {
	filters, err := ParseJSON(json.RawMessage(`{"type":"contract"}`))
	require.Nil(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "contract", filters[0].EventType)
}

func TestParseJSON_And(t *testing.T) {
	raw := `{"and":[{"type":"contract"},{"contract":"` + contractA + `"}]}`
	filters, err := ParseJSON(json.RawMessage(raw))
	require.Nil(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "contract", filters[0].EventType)
	assert.Equal(t, contractA, filters[0].ContractID)
}

func TestParseJSON_Or(t *testing.T) {
	raw := `{"or":[{"type":"contract"},{"type":"system"}]}`
	filters, err := ParseJSON(json.RawMessage(raw))
	require.Nil(t, err)
	require.Len(t, filters, 2)
}

func TestParseJSON_NestedCombinators(t *testing.T) {
	raw := `{"and":[
		{"or":[{"type":"contract"},{"type":"system"}]},
		{"contract":"` + contractA + `"}
	]}`
	filters, err := ParseJSON(json.RawMessage(raw))
	require.Nil(t, err)
	require.Len(t, filters, 2)
	for _, f := range filters {
		assert.Equal(t, contractA, f.ContractID)
	}
}

func TestParseJSON_TopicValues(t *testing.T) {
	raw := `{"and":[
		{"topic0":{"symbol":"transfer"}},
		{"topic":{"address":"GDEF"}}
	]}`
	filters, err := ParseJSON(json.RawMessage(raw))
	require.Nil(t, err)
	require.Len(t, filters, 1)
	require.Len(t, filters[0].Topics, 1)
	require.Len(t, filters[0].TopicsAny, 1)
	assert.Equal(t, jsonValue(t, `{"symbol":"transfer"}`), filters[0].Topics[0])
	assert.Equal(t, jsonValue(t, `{"address":"GDEF"}`), filters[0].TopicsAny[0])
}

func TestParseJSON_LedgerNumber(t *testing.T) {
	filters, err := ParseJSON(json.RawMessage(`{"ledger":58000000}`))
	require.Nil(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, uint32(58000000), filters[0].Ledger)
}

func TestParseJSON_SingleChildCombinator(t *testing.T) {
	filters, err := ParseJSON(json.RawMessage(`{"and":[{"type":"contract"}]}`))
	require.Nil(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "contract", filters[0].EventType)
}

func TestParseJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind ErrorKind
	}{
		{"not an object", `"type:contract"`, ErrUnexpectedToken},
		{"two keys", `{"type":"contract","contract":"C"}`, ErrUnexpectedToken},
		{"unknown key", `{"foo":"bar"}`, ErrUnknownKey},
		{"empty and", `{"and":[]}`, ErrInvalidValue},
		{"and not array", `{"and":{"type":"contract"}}`, ErrInvalidValue},
		{"type not string", `{"type":5}`, ErrInvalidValue},
		{"conflicting types", `{"and":[{"type":"contract"},{"type":"system"}]}`, ErrConflictingQualifiers},
		{"tx without ledger", `{"tx":"abc"}`, ErrMissingDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON(json.RawMessage(tt.raw))
			require.NotNil(t, err)
			assert.Equal(t, tt.kind, err.Kind)
		})
	}
}

func TestParseJSON_DepthLimit(t *testing.T) {
	// Five nested combinators exceed the depth limit of four.
	raw := `{"and":[{"and":[{"and":[{"and":[{"and":[{"type":"contract"}]}]}]}]}]}`
	_, err := ParseJSON(json.RawMessage(raw))
	require.NotNil(t, err)
	assert.Equal(t, ErrNestingTooDeep, err.Kind)
}

func TestParseJSON_FilterBlowup(t *testing.T) {
	raw := `{"and":[
		{"or":[{"type":"contract"},{"type":"system"},{"type":"diagnostic"}]},
		{"or":[{"contract":"A"},{"contract":"B"}]},
		{"or":[{"topic0":{"s":"x"}},{"topic0":{"s":"y"}},{"topic0":{"s":"z"}},{"topic0":{"s":"w"}}]}
	]}`
	_, err := ParseJSON(json.RawMessage(raw))
	require.NotNil(t, err)
	assert.Equal(t, ErrTooManyFilters, err.Kind)
}

// String form → AST → JSON form → filters preserves the DNF expansion.
func TestExprToJSONNode_RoundTrip(t *testing.T) {
	inputs := []string{
		"type:contract",
		"type:contract contract:" + contractA,
		"(type:contract OR type:system) contract:" + contractA,
		`topic0:{"symbol":"transfer"} topic:{"u64":18446744073709551615}`,
		"ledger:100 tx:abc",
	}

	for _, input := range inputs {
		expr, perr := ParseExpr(input)
		require.Nil(t, perr, input)

		node, err := ExprToJSONNode(expr)
		require.NoError(t, err, input)

		viaJSON, perr := ParseJSONNode(node)
		require.Nil(t, perr, input)

		direct, perr := ExpandToFilters(expr)
		require.Nil(t, perr, input)

		assert.Equal(t, direct, viaJSON, "input %q", input)
	}
}

// The two forms are bijective under DNF semantics: equivalent expressions
// expand to the same filters.
func TestParseJSON_EquivalentToStringForm(t *testing.T) {
	cases := []struct {
		stringForm string
		jsonForm   string
	}{
		{
			"type:contract contract:" + contractA,
			`{"and":[{"type":"contract"},{"contract":"` + contractA + `"}]}`,
		},
		{
			"type:contract OR type:system",
			`{"or":[{"type":"contract"},{"type":"system"}]}`,
		},
		{
			"(type:contract OR type:system) contract:" + contractA,
			`{"and":[{"or":[{"type":"contract"},{"type":"system"}]},{"contract":"` + contractA + `"}]}`,
		},
		{
			`topic0:{"symbol":"transfer"} topic:{"u64":18446744073709551615}`,
			`{"and":[{"topic0":{"symbol":"transfer"}},{"topic":{"u64":18446744073709551615}}]}`,
		},
	}

	for _, tc := range cases {
		fromString, err := Parse(tc.stringForm)
		require.Nil(t, err, tc.stringForm)
		fromJSON, err := ParseJSON(json.RawMessage(tc.jsonForm))
		require.Nil(t, err, tc.jsonForm)
		assert.Equal(t, fromString, fromJSON, "forms disagree: %q vs %q", tc.stringForm, tc.jsonForm)
	}
}
