package reports

import (
	"sort"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
)

// PostProcess coerces every field of a raw report row that has a coercer and
// sets Currency to currency, replacing any value the API returned. raw is not
// modified. The first failing field, in name order, is reported as a
// coercion error carrying the field and raw value.
func PostProcess(raw map[string]interface{}, currency string) (map[string]interface{}, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	typed := make(map[string]interface{}, len(raw)+1)
	for _, k := range keys {
		value := raw[k]
		if coerce, ok := CoercerFor(k); ok {
			coerced, err := coerce(value)
			if err != nil {
				return nil, errors.NewCoercionError(k, value, err)
			}
			value = coerced
		}
		typed[k] = value
	}

	typed[CurrencyField] = currency
	return typed, nil
}
