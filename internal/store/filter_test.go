package store

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/leighmcculloch/stellar-events-api/internal/ledger"
)

func topicValue(t *testing.T, raw string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", raw, err)
	}
	return v
}

func eventWithTopics(t *testing.T, topics ...string) ledger.Event {
	t.Helper()
	parsed := make([]any, len(topics))
	for i, raw := range topics {
		parsed[i] = topicValue(t, raw)
	}
	return ledger.Event{
		LedgerSequence: 100,
		Phase:          1,
		TxHash:         "ab",
		ClosedAt:       time.Unix(1700000000, 0),
		Type:           ledger.EventTypeContract,
		ContractID:     "CAAA",
		Topics:         parsed,
	}
}

func TestFilter_EventType(t *testing.T) {
	e := eventWithTopics(t)

	if !(&EventFilter{}).Matches(&e) {
		t.Error("empty filter should match")
	}
	if !(&EventFilter{EventType: "contract"}).Matches(&e) {
		t.Error("matching type should match")
	}
	if (&EventFilter{EventType: "system"}).Matches(&e) {
		t.Error("mismatched type should not match")
	}
}

func TestFilter_ContractID(t *testing.T) {
	e := eventWithTopics(t)

	if !(&EventFilter{ContractID: "CAAA"}).Matches(&e) {
		t.Error("matching contract should match")
	}
	if (&EventFilter{ContractID: "CBBB"}).Matches(&e) {
		t.Error("mismatched contract should not match")
	}

	noContract := e
	noContract.ContractID = ""
	if (&EventFilter{ContractID: "CAAA"}).Matches(&noContract) {
		t.Error("filter with contract should not match event without one")
	}
}

func TestFilter_PositionalTopics(t *testing.T) {
	e := eventWithTopics(t,
		`{"symbol":"transfer"}`,
		`{"address":"GABC"}`,
		`{"address":"GDEF"}`,
	)

	match := &EventFilter{Topics: []any{topicValue(t, `{"symbol":"transfer"}`)}}
	if !match.Matches(&e) {
		t.Error("prefix positional match failed")
	}

	wildcard := &EventFilter{Topics: []any{nil, nil, topicValue(t, `{"address":"GDEF"}`)}}
	if !wildcard.Matches(&e) {
		t.Error("wildcard positional match failed")
	}

	wrongPosition := &EventFilter{Topics: []any{topicValue(t, `{"address":"GABC"}`)}}
	if wrongPosition.Matches(&e) {
		t.Error("value at wrong position matched")
	}

	tooLong := &EventFilter{Topics: []any{nil, nil, nil, topicValue(t, `{"symbol":"x"}`)}}
	if tooLong.Matches(&e) {
		t.Error("filter longer than event topics matched")
	}
}

func TestFilter_TopicsAny(t *testing.T) {
	e := eventWithTopics(t,
		`{"symbol":"transfer"}`,
		`{"address":"GABC"}`,
		`{"address":"GDEF"}`,
	)

	anywhere := &EventFilter{TopicsAny: []any{topicValue(t, `{"address":"GDEF"}`)}}
	if !anywhere.Matches(&e) {
		t.Error("any-position topic should match at position 2")
	}

	missing := &EventFilter{TopicsAny: []any{topicValue(t, `{"address":"GZZZ"}`)}}
	if missing.Matches(&e) {
		t.Error("absent any-position topic matched")
	}

	all := &EventFilter{TopicsAny: []any{
		topicValue(t, `{"symbol":"transfer"}`),
		topicValue(t, `{"address":"GABC"}`),
	}}
	if !all.Matches(&e) {
		t.Error("every any-position value present, should match")
	}

	partial := &EventFilter{TopicsAny: []any{
		topicValue(t, `{"symbol":"transfer"}`),
		topicValue(t, `{"address":"GZZZ"}`),
	}}
	if partial.Matches(&e) {
		t.Error("one absent any-position value should fail the filter")
	}
}

func TestFilter_NumberEquality(t *testing.T) {
	e := eventWithTopics(t, `{"u64":18446744073709551615}`)

	match := &EventFilter{Topics: []any{topicValue(t, `{"u64":18446744073709551615}`)}}
	if !match.Matches(&e) {
		t.Error("large integer topic should match structurally")
	}

	other := &EventFilter{Topics: []any{topicValue(t, `{"u64":18446744073709551614}`)}}
	if other.Matches(&e) {
		t.Error("different large integer matched")
	}
}

func TestFilter_NestedStructures(t *testing.T) {
	e := eventWithTopics(t, `{"map":[{"key":{"symbol":"k"},"val":{"u32":1}}]}`)

	match := &EventFilter{Topics: []any{topicValue(t, `{"map":[{"key":{"symbol":"k"},"val":{"u32":1}}]}`)}}
	if !match.Matches(&e) {
		t.Error("nested structure should match deeply")
	}

	different := &EventFilter{Topics: []any{topicValue(t, `{"map":[{"key":{"symbol":"k"},"val":{"u32":2}}]}`)}}
	if different.Matches(&e) {
		t.Error("nested structure with different leaf matched")
	}
}

func TestFilter_EmptyTopicsListMatchesAll(t *testing.T) {
	e := eventWithTopics(t)
	f := &EventFilter{Topics: []any{}}
	if !f.Matches(&e) {
		t.Error("empty positional topics should not constrain")
	}
}

func TestMatchesAny(t *testing.T) {
	e := eventWithTopics(t)

	if !MatchesAny(nil, &e) {
		t.Error("no filters should match everything")
	}
	filters := []EventFilter{
		{EventType: "system"},
		{ContractID: "CAAA"},
	}
	if !MatchesAny(filters, &e) {
		t.Error("second filter matches, disjunction should match")
	}
	noMatch := []EventFilter{
		{EventType: "system"},
		{ContractID: "CBBB"},
	}
	if MatchesAny(noMatch, &e) {
		t.Error("no filter matches, disjunction should fail")
	}
}
