// Package config provides configuration management for the Criteo connector.
//
// # Key Features
//
//   - TapConfig: the single configuration structure for a run
//   - Loading from JSON or YAML files through viper
//   - Environment variable substitution with ${VAR_NAME} syntax
//   - TAP_CRITEO_* environment overrides
//   - Defaults and validation returning ErrorTypeConfig errors
//
// # Usage
//
//	cfg, err := config.Load("config.json")
//	if err != nil {
//		// errors.IsType(err, errors.ErrorTypeConfig) is true for bad values
//		return err
//	}
//
// # Recognized options
//
//	client_id       string, required
//	client_secret   string, required
//	currency        string, default "USD"
//	start_date      date-time, required
//	end_date        date-time, optional (now when absent)
//
// Transport, logging and sync behavior have further options with defaults,
// see NewTapConfig.
//
// # Environment Variable Substitution
//
// File contents may reference ${CRITEO_CLIENT_SECRET}; references are replaced
// before parsing. Unset variables become empty strings.
package config
