package reports

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	jsonpool "github.com/ajitpratap0/nebula-criteo/pkg/json"
)

// Coercer converts a raw report value to its declared type. Coercers accept
// values that are already of the target type, and pass nil through.
type Coercer func(value interface{}) (interface{}, error)

// Report timestamps are month/day/year, with or without a 24-hour time
var dateLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

var coercers = map[string]Coercer{
	"Day":  coerceDate,
	"Date": coerceDate,
	"Hour": coerceDate,

	"Clicks":   coerceInteger,
	"Displays": coerceInteger,
	"Visits":   coerceInteger,

	"AdvertiserCost": coerceDecimal,

	// Sales
	"SalesClientAttribution":    coerceInteger,
	"SalesAllClientAttribution": coerceInteger,
	"SalesPc30d":                coerceInteger,
	"SalesAllPc30d":             coerceInteger,
	"SalesPv24h":                coerceInteger,
	"SalesAllPv24h":             coerceInteger,
	"SalesPc30dPv24h":           coerceInteger,
	"SalesAllPc30dPv24h":        coerceInteger,
	"SalesPc1d":                 coerceInteger,
	"SalesAllPc1d":              coerceInteger,
	"SalesPc7d":                 coerceInteger,
	"SalesAllPc7d":              coerceInteger,

	// Revenue
	"RevenueGeneratedClientAttribution":    coerceDecimal,
	"RevenueGeneratedAllClientAttribution": coerceDecimal,
	"RevenueGeneratedPc30d":                coerceDecimal,
	"RevenueGeneratedAllPc30d":             coerceDecimal,
	"RevenueGeneratedPv24h":                coerceDecimal,
	"RevenueGeneratedAllPv24h":             coerceDecimal,
	"RevenueGeneratedPc30dPv24h":           coerceDecimal,
	"RevenueGeneratedAllPc30dPv24h":        coerceDecimal,
	"RevenueGeneratedPc1d":                 coerceDecimal,
	"RevenueGeneratedAllPc1d":              coerceDecimal,
	"RevenueGeneratedPc7d":                 coerceDecimal,
	"RevenueGeneratedAllPc7d":              coerceDecimal,
}

// CoercerFor returns the coercer of a field. Fields without one are emitted
// as received.
func CoercerFor(name string) (Coercer, bool) {
	c, ok := coercers[name]
	return c, ok
}

func coerceDate(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("not a month/day/year date-time")
	default:
		return nil, fmt.Errorf("unsupported date value of type %T", value)
	}
}

func coerceInteger(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
		if v >= math.MaxInt64 || v < math.MinInt64 {
			return nil, fmt.Errorf("%v is out of the integer range", v)
		}
		return int64(v), nil
	case decimal.Decimal:
		if !v.IsInteger() {
			return nil, fmt.Errorf("%s is not an integer", v)
		}
		return v.IntPart(), nil
	case jsonpool.Number:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return nil, fmt.Errorf("unsupported integer value of type %T", value)
	}
}

func coerceDecimal(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		return v, nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case jsonpool.Number:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		return nil, fmt.Errorf("unsupported decimal value of type %T", value)
	}
}
