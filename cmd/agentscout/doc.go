/*
Package main is the agentscout command line interface.

# Overview

cmd/agentscout wraps the discovery engine in a small set of subcommands for
interactive use and scripting. The binary loads YAML configuration with
AGENTSCOUT_* environment overrides, emits structured logs (zap) on stderr,
and keeps stdout reserved for command output so pipes stay parseable.

# Subcommands

  - discover "<task>": rank registry agents for a task description
  - similar <agent-id>: agents with overlapping capabilities and domain
  - agents: list every agent known to the registry
  - health: probe the registry and, when enabled, Redis
  - version: build metadata (Version, BuildTime, GitCommit)

# Capabilities

  - Per-subcommand flag sets: --config, --registry, --json plus
    command-specific options such as --limit, --min-score and --exclude
  - Optional Redis-backed performance store; startup degrades to the
    in-memory store when Redis is unreachable
  - OpenTelemetry trace export when telemetry is enabled in config
  - Build injection: Version, BuildTime, GitCommit set via ldflags
*/
package main
