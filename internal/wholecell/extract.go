// Licensed to Wholesale Dashboard under one or more agreements.
// Wholesale Dashboard licenses this file to you under the Apache 2.0 License.
// See the LICENSE file in the project root for more information.

package wholecell

import (
	"encoding/json"
	"sort"
)

// Extracted holds the handful of named fields the dashboard cares about,
// pulled best-effort from an inventory item. A missing or mis-typed nested
// structure degrades that field to JSON null; extraction never fails.
type Extracted struct {
	ESN            any `json:"esn"`
	Model          any `json:"model"`
	Grade          any `json:"grade"`
	TotalPricePaid any `json:"total_price_paid"`
}

// FirstItem returns the inventory item to extract fields from. Wholecell
// responses may be a JSON array of items or a single item object; anything
// else yields nil.
func FirstItem(data any) map[string]any {
	switch v := data.(type) {
	case []any:
		if len(v) == 0 {
			return nil
		}
		item, _ := v[0].(map[string]any)
		return item
	case map[string]any:
		return v
	default:
		return nil
	}
}

// ExtractFields pulls esn, product.model, product_variation.grade, and
// total_price_paid from an inventory item.
func ExtractFields(item map[string]any) Extracted {
	return Extracted{
		ESN:            item["esn"],
		Model:          nestedField(item, "product", "model"),
		Grade:          nestedField(item, "product_variation", "grade"),
		TotalPricePaid: item["total_price_paid"],
	}
}

// nestedField looks up parent[key] where parent must be an object.
func nestedField(item map[string]any, parent, key string) any {
	obj, ok := item[parent].(map[string]any)
	if !ok {
		return nil
	}
	return obj[key]
}

// Analysis describes the structure of an upstream payload. It exists to help
// humans inspect what Wholecell actually returns for a given query.
type Analysis struct {
	ResponseType  string   `json:"response_type"`
	IsList        bool     `json:"is_list"`
	IsDict        bool     `json:"is_dict"`
	ListLength    *int     `json:"list_length,omitempty"`
	FirstItemKeys []string `json:"first_item_keys,omitempty"`
	Keys          []string `json:"keys,omitempty"`
}

// Analyze reports the structural shape of a raw JSON payload: whether it is
// an array or object, its length or keys, and the keys of the first element
// when it is an array of objects.
func Analyze(raw json.RawMessage) Analysis {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Analysis{ResponseType: "invalid"}
	}

	switch v := data.(type) {
	case []any:
		n := len(v)
		a := Analysis{ResponseType: "array", IsList: true, ListLength: &n}
		if n > 0 {
			if first, ok := v[0].(map[string]any); ok {
				a.FirstItemKeys = sortedKeys(first)
			}
		}
		return a
	case map[string]any:
		return Analysis{ResponseType: "object", IsDict: true, Keys: sortedKeys(v)}
	case string:
		return Analysis{ResponseType: "string"}
	case float64:
		return Analysis{ResponseType: "number"}
	case bool:
		return Analysis{ResponseType: "boolean"}
	default:
		return Analysis{ResponseType: "null"}
	}
}

// sortedKeys returns the object's keys in a stable order.
func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
