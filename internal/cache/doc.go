/*
Package cache wraps the go-redis client behind a small Manager used by the
Redis-backed performance store and the CLI health probe.

# Overview

Manager owns the Redis connection lifecycle: it dials and pings on
construction, runs an optional background health check, and releases the
connection on Close. Callers get a narrow read/write surface with string and
JSON accessors plus a batched MGet for snapshot reads.

# Core Types

  - Manager: holds the Redis client and pool configuration, provides
    Get/MGet/Set/Delete plus GetJSON/SetJSON convenience methods.
  - Config: address, credentials, pool sizing, default TTL, TLS switch and
    health check interval.

# Capabilities

  - Key/value access: string and JSON modes, with a default TTL applied
    when the caller passes zero.
  - Batched reads: MGet fetches many keys in one round trip and reports
    only the keys that exist.
  - Connection pooling: PoolSize and MinIdleConns control reuse.
  - TLS: Config.TLS dials Redis with the TLS 1.2+ settings from
    internal/tlsutil.
  - Health checks: background Ping on a configurable interval, warning
    through zap on failure.
  - Error semantics: ErrCacheMiss sentinel and IsCacheMiss helper; every
    method fails fast once the manager is closed.

This package is internal and should not be imported by external projects.
*/
package cache
