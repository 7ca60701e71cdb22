package config_test

import (
	"fmt"

	"github.com/ajitpratap0/nebula-criteo/pkg/config"
)

// ExampleNewTapConfig demonstrates the defaults applied before loading.
func ExampleNewTapConfig() {
	cfg := config.NewTapConfig()

	fmt.Printf("Currency: %s\n", cfg.Currency)
	fmt.Printf("API: %s\n", cfg.APIPath("statistics/report"))
	fmt.Printf("Request Timeout: %s\n", cfg.RequestTimeout)

	// Output:
	// Currency: USD
	// API: /2023-01/statistics/report
	// Request Timeout: 30s
}

// ExampleParseInstant shows the accepted date-time shapes.
func ExampleParseInstant() {
	for _, v := range []string{"2024-01-01", "2024-01-01T10:30:00", "2024-01-01T10:30:00+02:00"} {
		t, err := config.ParseInstant(v)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Println(t.Format("2006-01-02T15:04:05Z07:00"))
	}

	// Output:
	// 2024-01-01T00:00:00Z
	// 2024-01-01T10:30:00Z
	// 2024-01-01T08:30:00Z
}
