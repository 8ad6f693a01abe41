package query

import (
	"encoding/json"
	"fmt"

	"github.com/leighmcculloch/stellar-events-api/internal/store"
)

// ParseJSON parses the structured (JSON) form of a filter expression into
// the same DNF-expanded filter list as the string form.
//
// Each node is an object with exactly one key: either a qualifier key with
// its value, or "and"/"or" with an array of one or more child nodes.
func ParseJSON(raw json.RawMessage) ([]store.EventFilter, *ParseError) {
	node, err := decodeJSONValue(string(raw))
	if err != nil {
		return nil, &ParseError{Kind: ErrInvalidValue, Message: "invalid JSON filter expression"}
	}
	return ParseJSONNode(node)
}

// ParseJSONNode converts an already-decoded JSON node (UseNumber trees)
// into filters.
func ParseJSONNode(node any) ([]store.EventFilter, *ParseError) {
	expr, err := exprFromJSONNode(node, 0)
	if err != nil {
		return nil, err
	}

	terms := countQualifiers(expr)
	if terms > MaxQueryTerms {
		return nil, &ParseError{
			Kind:    ErrTooManyTerms,
			Message: fmt.Sprintf("query exceeds maximum of %d terms", MaxQueryTerms),
		}
	}

	return ExpandToFilters(expr)
}

// exprFromJSONNode builds the AST for one JSON node. Combinator nesting is
// bounded by the same depth limit as parentheses in the string form.
func exprFromJSONNode(node any, depth int) (Expr, *ParseError) {
	obj, ok := node.(map[string]any)
	if !ok || len(obj) != 1 {
		return nil, &ParseError{
			Kind:    ErrUnexpectedToken,
			Message: "each filter node must be an object with exactly one key",
		}
	}

	var key string
	var value any
	for k, v := range obj {
		key, value = k, v
	}

	switch key {
	case "and", "or":
		if depth+1 > MaxNestingDepth {
			return nil, &ParseError{
				Kind:    ErrNestingTooDeep,
				Message: fmt.Sprintf("query exceeds maximum nesting depth of %d", MaxNestingDepth),
			}
		}
		children, ok := value.([]any)
		if !ok || len(children) == 0 {
			return nil, &ParseError{
				Kind:    ErrInvalidValue,
				Message: fmt.Sprintf("'%s' requires a non-empty array of child nodes", key),
			}
		}
		exprs := make([]Expr, 0, len(children))
		for _, child := range children {
			childExpr, err := exprFromJSONNode(child, depth+1)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, childExpr)
		}
		if len(exprs) == 1 {
			return exprs[0], nil
		}
		if key == "and" {
			return &And{Children: exprs}, nil
		}
		return &Or{Children: exprs}, nil

	default:
		if !validKeys[key] {
			return nil, &ParseError{
				Kind:    ErrUnknownKey,
				Message: fmt.Sprintf("unknown key '%s' (expected: type, contract, topic, topic0..topic3, ledger, tx, and, or)", key),
			}
		}
		text, err := qualifierValueText(key, value)
		if err != nil {
			return nil, err
		}
		return &Qualifier{Key: key, Value: text}, nil
	}
}

// qualifierValueText renders a JSON qualifier value into the string form
// the shared qualifier mapping consumes. Scalar keys require scalar JSON
// values; topic keys accept any JSON value.
func qualifierValueText(key string, value any) (string, *ParseError) {
	switch key {
	case "type", "contract", "tx":
		s, ok := value.(string)
		if !ok {
			return "", &ParseError{
				Kind:    ErrInvalidValue,
				Message: fmt.Sprintf("value for '%s' must be a string", key),
			}
		}
		return s, nil
	case "ledger":
		switch v := value.(type) {
		case json.Number:
			return v.String(), nil
		case string:
			return v, nil
		default:
			return "", &ParseError{
				Kind:    ErrInvalidValue,
				Message: "value for 'ledger' must be a positive integer",
			}
		}
	default:
		// topic / topic0..topic3 carry arbitrary JSON values; re-serialize
		// for the shared qualifier path. json.Number round-trips verbatim.
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", &ParseError{
				Kind:    ErrInvalidValue,
				Message: fmt.Sprintf("invalid JSON value for '%s'", key),
			}
		}
		return string(encoded), nil
	}
}

// ExprToJSONNode renders an AST into the structured JSON form. The result
// feeds back through ParseJSONNode to the same DNF expansion.
func ExprToJSONNode(e Expr) (any, error) {
	switch v := e.(type) {
	case *Qualifier:
		switch v.Key {
		case "type", "contract", "tx":
			return map[string]any{v.Key: v.Value}, nil
		case "ledger":
			return map[string]any{v.Key: json.Number(v.Value)}, nil
		default:
			val, err := decodeJSONValue(v.Value)
			if err != nil {
				return nil, fmt.Errorf("qualifier '%s' value is not valid JSON: %w", v.Key, err)
			}
			return map[string]any{v.Key: val}, nil
		}
	case *And:
		children, err := jsonChildren(v.Children)
		if err != nil {
			return nil, err
		}
		return map[string]any{"and": children}, nil
	case *Or:
		children, err := jsonChildren(v.Children)
		if err != nil {
			return nil, err
		}
		return map[string]any{"or": children}, nil
	default:
		return nil, fmt.Errorf("unexpected expression node")
	}
}

func jsonChildren(exprs []Expr) ([]any, error) {
	children := make([]any, 0, len(exprs))
	for _, child := range exprs {
		node, err := ExprToJSONNode(child)
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}
	return children, nil
}

func countQualifiers(e Expr) int {
	switch v := e.(type) {
	case *Qualifier:
		return 1
	case *And:
		n := 0
		for _, child := range v.Children {
			n += countQualifiers(child)
		}
		return n
	case *Or:
		n := 0
		for _, child := range v.Children {
			n += countQualifiers(child)
		}
		return n
	default:
		return 0
	}
}
