// Package config loads agentscout configuration.
//
// Values resolve in three layers: built-in defaults, an optional YAML
// file, then environment variables with the AGENTSCOUT prefix. The
// package is standalone; consumers map its sections onto the registry
// client, cache manager and discovery engine settings they need.
package config
