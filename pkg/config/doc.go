// Package config provides configuration types and loading for the cache
// service.
//
// Configuration is YAML with environment variable substitution in the form
// ${VAR} or ${VAR:-default}. Durations are human-readable strings ("30s",
// "5m") via the Duration wrapper type. A fsnotify-based Watcher reloads the
// file on change so segment TTLs and maintenance intervals can be tuned
// without a restart.
package config
