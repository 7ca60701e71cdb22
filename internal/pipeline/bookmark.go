package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// later reports whether candidate sorts after current as a replication
// value. Values of different kinds compare by their string form.
func later(current, candidate interface{}) bool {
	if candidate == nil {
		return false
	}
	if current == nil {
		return true
	}

	switch c := candidate.(type) {
	case time.Time:
		if cur, ok := current.(time.Time); ok {
			return c.After(cur)
		}
	case int64:
		if cur, ok := current.(int64); ok {
			return c > cur
		}
	case decimal.Decimal:
		if cur, ok := current.(decimal.Decimal); ok {
			return c.GreaterThan(cur)
		}
	case json.Number:
		if cur, ok := current.(json.Number); ok {
			a, errA := decimal.NewFromString(c.String())
			b, errB := decimal.NewFromString(cur.String())
			if errA == nil && errB == nil {
				return a.GreaterThan(b)
			}
		}
	case string:
		if cur, ok := current.(string); ok {
			return c > cur
		}
	}
	return fmt.Sprint(candidate) > fmt.Sprint(current)
}
