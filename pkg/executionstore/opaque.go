package executionstore

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// encodeOpaque serializes an opaque input/output map to a JSON blob via
// sjson, one Set per key, rather than a stdlib json.Marshal round trip —
// this is the same field-at-a-time JSON construction the reference
// codebase uses for unstructured config patches.
func encodeOpaque(m map[string]interface{}) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	doc := "{}"
	var err error
	for k, v := range m {
		doc, err = sjson.Set(doc, k, v)
		if err != nil {
			return "", err
		}
	}
	return doc, nil
}

// decodeOpaque is encodeOpaque's dual, read back via gjson instead of
// json.Unmarshal.
func decodeOpaque(blob string) map[string]interface{} {
	if blob == "" {
		return nil
	}
	parsed := gjson.Parse(blob)
	if !parsed.IsObject() {
		return nil
	}
	out := map[string]interface{}{}
	parsed.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.Value()
		return true
	})
	return out
}
