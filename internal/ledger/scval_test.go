package ledger

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/stellar/go/xdr"
)

// decodeJSON parses the expected form the way the query path does, with
// UseNumber, so the comparison mirrors filter matching.
func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", s, err)
	}
	return v
}

func scSymbol(s string) xdr.ScVal {
	sym := xdr.ScSymbol(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &sym}
}

func TestScValToJSON_Symbol(t *testing.T) {
	got := scValToJSON(scSymbol("transfer"))
	want := decodeJSON(t, `{"symbol":"transfer"}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestScValToJSON_U32(t *testing.T) {
	v := xdr.Uint32(42)
	got := scValToJSON(xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &v})
	want := decodeJSON(t, `{"u32":42}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestScValToJSON_U64_LargeValue(t *testing.T) {
	// Larger than 2^53: must survive without float64 precision loss.
	v := xdr.Uint64(18446744073709551615)
	got := scValToJSON(xdr.ScVal{Type: xdr.ScValTypeScvU64, U64: &v})
	want := decodeJSON(t, `{"u64":18446744073709551615}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestScValToJSON_Bool(t *testing.T) {
	v := true
	got := scValToJSON(xdr.ScVal{Type: xdr.ScValTypeScvBool, B: &v})
	want := decodeJSON(t, `{"bool":true}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestScValToJSON_Void(t *testing.T) {
	got := scValToJSON(xdr.ScVal{Type: xdr.ScValTypeScvVoid})
	if got != "void" {
		t.Errorf("got %#v, want \"void\"", got)
	}
}

func TestScValToJSON_Bytes(t *testing.T) {
	v := xdr.ScBytes{0xde, 0xad, 0xbe, 0xef}
	got := scValToJSON(xdr.ScVal{Type: xdr.ScValTypeScvBytes, Bytes: &v})
	want := decodeJSON(t, `{"bytes":"deadbeef"}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestScValToJSON_Vec(t *testing.T) {
	vec := xdr.ScVec{scSymbol("transfer"), scSymbol("mint")}
	pv := &vec
	got := scValToJSON(xdr.ScVal{Type: xdr.ScValTypeScvVec, Vec: &pv})
	want := decodeJSON(t, `{"vec":[{"symbol":"transfer"},{"symbol":"mint"}]}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestScValToJSON_I128(t *testing.T) {
	v := xdr.Int128Parts{Hi: -1, Lo: 5}
	got := scValToJSON(xdr.ScVal{Type: xdr.ScValTypeScvI128, I128: &v})
	want := decodeJSON(t, `{"i128":{"hi":-1,"lo":5}}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}
