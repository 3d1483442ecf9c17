// Package config loads and validates the TOML configuration for spool.
// Values flow one way: Default() -> file overrides -> normalize -> Validate.
// All path fields are tilde-expanded and absolute after Load returns.
package config
