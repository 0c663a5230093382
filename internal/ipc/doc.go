// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Runner
// and job payloads reuse the api package types so the CLI, the HTTP API and
// IPC all render the same shapes.
package ipc
