package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strconv"
	"unicode/utf16"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"
)

// marshalCanonical writes RFC 8785 style JSON for the payload trees built
// in payload.go. Only string, int64, bool, []any and map[string]any are
// accepted; floats are carried as strings so the output is byte-stable.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return errors.New("null is forbidden in canonical JSON")
	case string:
		return writeCanonicalString(buf, val)
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return errors.Wrapf(err, "[%d]", i)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareUTF16)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return errors.Wrapf(err, "[%q]", k)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return errors.Newf("floats are forbidden in canonical JSON: %v", val)
	default:
		return errors.Newf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString NFC-normalizes s and escapes only what JSON
// requires: no HTML escaping, and U+2028/U+2029 stay literal.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into the
// literal runes, leaving escaped backslashes (\\u2028) alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			out = append(out, data[i])
			continue
		}
		if i+5 < len(data) && string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		// Any other escape is two bytes; copy both so an escaped
		// backslash is never read as the start of a new escape.
		out = append(out, data[i])
		if i+1 < len(data) {
			out = append(out, data[i+1])
			i++
		}
	}
	return out
}

// compareUTF16 orders keys by UTF-16 code units. Go's native string order
// is by UTF-8 bytes, which differs for supplementary-plane runes.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

const eventIDDomain = "dvdb/event/v1"

// eventID is content addressed over the event's identity fields, so a
// replayed write of the same event is a no-op.
func eventID(token string, seq int64, kind string, elementID int64) (string, error) {
	data, err := marshalCanonical(map[string]any{
		"token":      token,
		"seq":        seq,
		"kind":       kind,
		"element_id": elementID,
	})
	if err != nil {
		return "", err
	}
	return hashWithDomain(eventIDDomain, data), nil
}
