// Package config loads gate-opener configuration from YAML files.
//
// Configuration values support ${VAR_NAME} environment variable expansion,
// so secrets (JWT signing key, PSKs, store credentials) can live outside the
// file. Durations are written as Go duration strings ("6h", "100ms") and
// parsed after unmarshaling.
package config
