// Package file provides the TOML configuration store.
//
// Values are kept as dot-notation keys ("auth.client_id") for the config
// commands and resolved into domain.Settings in three layers: built-in
// defaults, then the file, then RECORDER_* environment variables.
package file
