package ledger

import (
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/stellar/go/xdr"
)

// scValToJSON converts an ScVal into an XDR-JSON value tree: every node is
// a single-key object keyed by the variant name, except the unit variants
// which render as their name. Integers become json.Number so that trees
// built here compare structurally equal to trees parsed from request JSON
// with UseNumber.
func scValToJSON(val xdr.ScVal) any {
	switch val.Type {
	case xdr.ScValTypeScvBool:
		return map[string]any{"bool": val.MustB()}
	case xdr.ScValTypeScvVoid:
		return "void"
	case xdr.ScValTypeScvError:
		scErr := val.MustError()
		node := map[string]any{"type": scErr.Type.String()}
		if code, ok := scErr.GetContractCode(); ok {
			node["contract_code"] = numberU64(uint64(code))
		}
		if code, ok := scErr.GetCode(); ok {
			node["code"] = code.String()
		}
		return map[string]any{"error": node}
	case xdr.ScValTypeScvU32:
		return map[string]any{"u32": numberU64(uint64(val.MustU32()))}
	case xdr.ScValTypeScvI32:
		return map[string]any{"i32": numberI64(int64(val.MustI32()))}
	case xdr.ScValTypeScvU64:
		return map[string]any{"u64": numberU64(uint64(val.MustU64()))}
	case xdr.ScValTypeScvI64:
		return map[string]any{"i64": numberI64(int64(val.MustI64()))}
	case xdr.ScValTypeScvTimepoint:
		return map[string]any{"timepoint": numberU64(uint64(val.MustTimepoint()))}
	case xdr.ScValTypeScvDuration:
		return map[string]any{"duration": numberU64(uint64(val.MustDuration()))}
	case xdr.ScValTypeScvU128:
		u128 := val.MustU128()
		return map[string]any{"u128": map[string]any{
			"hi": numberU64(uint64(u128.Hi)),
			"lo": numberU64(uint64(u128.Lo)),
		}}
	case xdr.ScValTypeScvI128:
		i128 := val.MustI128()
		return map[string]any{"i128": map[string]any{
			"hi": numberI64(int64(i128.Hi)),
			"lo": numberU64(uint64(i128.Lo)),
		}}
	case xdr.ScValTypeScvU256:
		u256 := val.MustU256()
		return map[string]any{"u256": map[string]any{
			"hi_hi": numberU64(uint64(u256.HiHi)),
			"hi_lo": numberU64(uint64(u256.HiLo)),
			"lo_hi": numberU64(uint64(u256.LoHi)),
			"lo_lo": numberU64(uint64(u256.LoLo)),
		}}
	case xdr.ScValTypeScvI256:
		i256 := val.MustI256()
		return map[string]any{"i256": map[string]any{
			"hi_hi": numberI64(int64(i256.HiHi)),
			"hi_lo": numberU64(uint64(i256.HiLo)),
			"lo_hi": numberU64(uint64(i256.LoHi)),
			"lo_lo": numberU64(uint64(i256.LoLo)),
		}}
	case xdr.ScValTypeScvBytes:
		return map[string]any{"bytes": hex.EncodeToString(val.MustBytes())}
	case xdr.ScValTypeScvString:
		return map[string]any{"string": string(val.MustStr())}
	case xdr.ScValTypeScvSymbol:
		return map[string]any{"symbol": string(val.MustSym())}
	case xdr.ScValTypeScvVec:
		vec := *val.MustVec()
		elements := make([]any, len(vec))
		for i, element := range vec {
			elements[i] = scValToJSON(element)
		}
		return map[string]any{"vec": elements}
	case xdr.ScValTypeScvMap:
		scMap := *val.MustMap()
		entries := make([]any, len(scMap))
		for i, entry := range scMap {
			entries[i] = map[string]any{
				"key": scValToJSON(entry.Key),
				"val": scValToJSON(entry.Val),
			}
		}
		return map[string]any{"map": entries}
	case xdr.ScValTypeScvAddress:
		addr := val.MustAddress()
		str, err := addr.String()
		if err != nil {
			return nil
		}
		return map[string]any{"address": str}
	case xdr.ScValTypeScvLedgerKeyContractInstance:
		return "ledger_key_contract_instance"
	case xdr.ScValTypeScvLedgerKeyNonce:
		return map[string]any{"ledger_key_nonce": map[string]any{
			"nonce": numberI64(int64(val.MustNonceKey().Nonce)),
		}}
	case xdr.ScValTypeScvContractInstance:
		return map[string]any{"contract_instance": val.MustInstance().Executable.Type.String()}
	default:
		return val.Type.String()
	}
}

func numberU64(v uint64) json.Number {
	return json.Number(strconv.FormatUint(v, 10))
}

func numberI64(v int64) json.Number {
	return json.Number(strconv.FormatInt(v, 10))
}
