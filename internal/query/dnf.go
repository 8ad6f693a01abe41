package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/leighmcculloch/stellar-events-api/internal/ledger"
	"github.com/leighmcculloch/stellar-events-api/internal/store"
)

// ExpandToFilters normalizes an AST to disjunctive normal form and maps
// each AND-group onto one EventFilter.
func ExpandToFilters(expr Expr) ([]store.EventFilter, *ParseError) {
	groups, err := toGroups(expr)
	if err != nil {
		return nil, err
	}

	filters := make([]store.EventFilter, 0, len(groups))
	for _, group := range groups {
		filter, err := groupToFilter(group)
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

// toGroups converts an expression into its DNF AND-groups of qualifiers.
// The expansion cap is enforced while distributing: the running product of
// OR arities bails out as soon as it would exceed MaxFilters, before any
// oversized expansion is materialized.
func toGroups(expr Expr) ([][]*Qualifier, *ParseError) {
	switch v := expr.(type) {
	case *Qualifier:
		return [][]*Qualifier{{v}}, nil

	case *Or:
		var groups [][]*Qualifier
		for _, child := range v.Children {
			childGroups, err := toGroups(child)
			if err != nil {
				return nil, err
			}
			groups = append(groups, childGroups...)
			if len(groups) > MaxFilters {
				return nil, tooManyFilters(len(groups))
			}
		}
		return groups, nil

	case *And:
		groups := [][]*Qualifier{{}}
		for _, child := range v.Children {
			childGroups, err := toGroups(child)
			if err != nil {
				return nil, err
			}
			if product := len(groups) * len(childGroups); product > MaxFilters {
				return nil, tooManyFilters(product)
			}
			next := make([][]*Qualifier, 0, len(groups)*len(childGroups))
			for _, existing := range groups {
				for _, branch := range childGroups {
					extended := make([]*Qualifier, 0, len(existing)+len(branch))
					extended = append(extended, existing...)
					extended = append(extended, branch...)
					next = append(next, extended)
				}
			}
			groups = next
		}
		return groups, nil

	default:
		return nil, &ParseError{Kind: ErrUnexpectedToken, Message: "unexpected expression node"}
	}
}

func tooManyFilters(n int) *ParseError {
	return &ParseError{
		Kind:    ErrTooManyFilters,
		Message: fmt.Sprintf("query expands to %d filters, maximum is %d", n, MaxFilters),
	}
}

// groupToFilter folds one AND-group of qualifiers into an EventFilter,
// applying the conflict and duplicate rules.
func groupToFilter(group []*Qualifier) (store.EventFilter, *ParseError) {
	var (
		eventType  string
		contractID string
		ledgerSeq  uint32
		tx         string
		txPos      int
		positional [4]any
		posSet     [4]bool
		topicsAny  []any
	)

	for _, q := range group {
		switch q.Key {
		case "type":
			if _, err := ledger.ParseEventType(q.Value); err != nil {
				return store.EventFilter{}, &ParseError{
					Kind:     ErrInvalidValue,
					Message:  fmt.Sprintf("invalid value '%s' for key 'type' (expected: contract, system, diagnostic)", q.Value),
					Position: q.Pos,
				}
			}
			if eventType != "" && eventType != q.Value {
				return store.EventFilter{}, &ParseError{
					Kind:     ErrConflictingQualifiers,
					Message:  fmt.Sprintf("conflicting values for 'type': '%s' and '%s' (use OR to match multiple types)", eventType, q.Value),
					Position: q.Pos,
				}
			}
			eventType = q.Value

		case "contract":
			if contractID != "" && contractID != q.Value {
				return store.EventFilter{}, &ParseError{
					Kind:     ErrConflictingQualifiers,
					Message:  fmt.Sprintf("conflicting values for 'contract': '%s' and '%s' (use OR to match multiple contracts)", contractID, q.Value),
					Position: q.Pos,
				}
			}
			contractID = q.Value

		case "ledger":
			parsed, err := strconv.ParseUint(q.Value, 10, 32)
			if err != nil || parsed == 0 {
				return store.EventFilter{}, &ParseError{
					Kind:     ErrInvalidValue,
					Message:  fmt.Sprintf("invalid value '%s' for key 'ledger' (expected a positive integer)", q.Value),
					Position: q.Pos,
				}
			}
			if ledgerSeq != 0 && ledgerSeq != uint32(parsed) {
				return store.EventFilter{}, &ParseError{
					Kind:     ErrConflictingQualifiers,
					Message:  fmt.Sprintf("conflicting values for 'ledger': '%d' and '%d' (use OR to match multiple ledgers)", ledgerSeq, parsed),
					Position: q.Pos,
				}
			}
			ledgerSeq = uint32(parsed)

		case "tx":
			if tx != "" && tx != q.Value {
				return store.EventFilter{}, &ParseError{
					Kind:     ErrConflictingQualifiers,
					Message:  fmt.Sprintf("conflicting values for 'tx': '%s' and '%s' (use OR to match multiple transactions)", tx, q.Value),
					Position: q.Pos,
				}
			}
			tx = q.Value
			txPos = q.Pos

		case "topic":
			val, err := decodeJSONValue(q.Value)
			if err != nil {
				return store.EventFilter{}, &ParseError{
					Kind:     ErrInvalidValue,
					Message:  fmt.Sprintf("invalid JSON value for 'topic': %s", q.Value),
					Position: q.Pos,
				}
			}
			duplicate := false
			for _, existing := range topicsAny {
				if reflect.DeepEqual(existing, val) {
					duplicate = true
					break
				}
			}
			if !duplicate {
				topicsAny = append(topicsAny, val)
			}

		case "topic0", "topic1", "topic2", "topic3":
			idx := int(q.Key[5] - '0')
			val, err := decodeJSONValue(q.Value)
			if err != nil {
				return store.EventFilter{}, &ParseError{
					Kind:     ErrInvalidValue,
					Message:  fmt.Sprintf("invalid JSON value for '%s': %s", q.Key, q.Value),
					Position: q.Pos,
				}
			}
			if posSet[idx] {
				if reflect.DeepEqual(positional[idx], val) {
					continue
				}
				return store.EventFilter{}, &ParseError{
					Kind:     ErrDuplicateTopicPosition,
					Message:  fmt.Sprintf("duplicate '%s' in one filter group (use OR to match multiple values)", q.Key),
					Position: q.Pos,
				}
			}
			positional[idx] = val
			posSet[idx] = true
		}
	}

	if tx != "" && ledgerSeq == 0 {
		return store.EventFilter{}, &ParseError{
			Kind:     ErrMissingDependency,
			Message:  "ledger is required when tx is provided",
			Position: txPos,
		}
	}

	var topics []any
	for idx := 3; idx >= 0; idx-- {
		if posSet[idx] {
			topics = make([]any, idx+1)
			for i := 0; i <= idx; i++ {
				if posSet[i] {
					topics[i] = positional[i]
				}
			}
			break
		}
	}

	return store.EventFilter{
		EventType:  eventType,
		ContractID: contractID,
		Topics:     topics,
		TopicsAny:  topicsAny,
		Ledger:     ledgerSeq,
		Tx:         tx,
	}, nil
}

// decodeJSONValue parses a topic value with UseNumber so that integers
// compare structurally equal to the store's value trees.
func decodeJSONValue(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// Reject trailing garbage like `{"a":1}x`.
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}
