package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Canonical encodes a JSON-like value into the deterministic string form the
// ledger hashes: object keys sorted by code point, arrays element-wise, no
// insignificant whitespace. Arbitrary Go values are first normalised through
// encoding/json so structs and typed slices encode like their JSON form.
// Numeric literals are carried through json.Number untouched, which keeps the
// writer and the verifier bit-exact on the same stored row.
func Canonical(v interface{}) (string, error) {
	norm, err := normalize(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := encodeCanonical(&b, norm); err != nil {
		return "", err
	}
	return b.String(), nil
}

// CanonicalDetails re-canonicalises a stored JSON document. The database is
// allowed to reorder object keys (jsonb does), so both writer and verifier
// run their view of the details through this before hashing.
func CanonicalDetails(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "{}", nil
	}
	v, err := decodeNumber(raw)
	if err != nil {
		return "", fmt.Errorf("cannot decode details: %w", err)
	}
	var b strings.Builder
	if err := encodeCanonical(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

// normalize round-trips v through encoding/json so that only the canonical
// value set (nil, bool, string, json.Number, []interface{},
// map[string]interface{}) reaches the encoder.
func normalize(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cannot normalize value: %w", err)
	}
	return decodeNumber(raw)
}

func decodeNumber(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func encodeCanonical(b *strings.Builder, v interface{}) error {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case json.Number:
		b.WriteString(val.String())
	case string:
		if err := encodeString(b, val); err != nil {
			return err
		}
	case []interface{}:
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeCanonical(b, elem); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeString(b, k); err != nil {
				return err
			}
			b.WriteByte(':')
			if err := encodeCanonical(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("cannot canonicalise value of type %T", v)
	}
	return nil
}

// encodeString writes s as a JSON string without the HTML escaping
// json.Marshal applies, so the output is plain standard JSON text.
func encodeString(b *strings.Builder, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return nil
}
