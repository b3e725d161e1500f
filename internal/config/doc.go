// Package config loads the gateway's YAML configuration with
// environment-variable expansion and duration parsing.
package config
