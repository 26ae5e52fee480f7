// Package config loads and watches the grocerychat client configuration file.
//
// Top-level types:
//   - Config{Client}: full config tree parsed from YAML
//   - ClientConfig: server_url, room_id, session_path, reconnect_delay,
//     request_timeout, history_limit, log_level, tls
//   - TLSConfig: insecure_skip_verify for self-signed development backends
//
// Load(path) reads the YAML file, applies defaults (localhost:8000 backend,
// 2s reconnect delay, 10s request timeout, 50 history messages), overlays
// GROCERYCHAT_* environment variables, then validates. LoadOrDefault(path)
// does the same but treats a missing file as empty, so the client runs with
// no config at all.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. The chat command uses it to change
// the log level of a running session.
package config
