package service

// FieldCodec walks a document tree and applies the cipher to every leaf
// string, so whole records can be encrypted before insertion and decrypted
// after reads without the caller enumerating fields.
type FieldCodec struct {
	cipher Cipher
}

// bsonWrapperKeys are the extended-JSON engine tags. A map whose single key
// is one of these wraps a typed scalar (object id, date, number), not user
// data, and must pass through untouched.
var bsonWrapperKeys = map[string]struct{}{
	"$oid":           {},
	"$date":          {},
	"$numberLong":    {},
	"$binary":        {},
	"$timestamp":     {},
	"$regex":         {},
	"$symbol":        {},
	"$code":          {},
	"$codeWithScope": {},
	"$minKey":        {},
	"$maxKey":        {},
	"$undefined":     {},
	"$null":          {},
	"$numberInt":     {},
	"$numberDouble":  {},
	"$numberDecimal": {},
}

// NewFieldCodec creates a FieldCodec over the given cipher.
func NewFieldCodec(cipher Cipher) *FieldCodec {
	return &FieldCodec{cipher: cipher}
}

// EncryptDocument returns a copy of doc with every leaf string encrypted
// under the keyset. Skip rules:
//   - values under a key named "uid" are never transformed (uid is an
//     opaque identifier used as a lookup key)
//   - maps whose single key is an engine tag are left untouched
//   - non-string leaves (booleans, numbers, timestamps) are left untouched
func (f *FieldCodec) EncryptDocument(doc map[string]any, keyset string) (map[string]any, error) {
	return f.walkMap(doc, keyset, f.cipher.Encrypt)
}

// DecryptDocument is the inverse of EncryptDocument, with the same skip rules.
func (f *FieldCodec) DecryptDocument(doc map[string]any, keyset string) (map[string]any, error) {
	return f.walkMap(doc, keyset, f.cipher.Decrypt)
}

func (f *FieldCodec) walkMap(
	doc map[string]any,
	keyset string,
	apply func(string, string) (string, error),
) (map[string]any, error) {
	if len(doc) == 1 {
		for k := range doc {
			if _, ok := bsonWrapperKeys[k]; ok {
				return doc, nil
			}
		}
	}

	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "uid" {
			out[k] = v
			continue
		}
		transformed, err := f.walkValue(v, keyset, apply)
		if err != nil {
			return nil, err
		}
		out[k] = transformed
	}
	return out, nil
}

func (f *FieldCodec) walkValue(
	v any,
	keyset string,
	apply func(string, string) (string, error),
) (any, error) {
	switch val := v.(type) {
	case string:
		return apply(val, keyset)
	case map[string]any:
		return f.walkMap(val, keyset, apply)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			transformed, err := f.walkValue(item, keyset, apply)
			if err != nil {
				return nil, err
			}
			out[i] = transformed
		}
		return out, nil
	default:
		return v, nil
	}
}
