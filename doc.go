// Package fcclient is a client library for the chat/broadcast wire
// protocol: a dialect-agnostic packet codec, a connection lifecycle
// manager with backoff and silence detection, and a model registry that
// merges per-session candidate state into best-session records, wired
// together behind a single Client facade.
//
// Construct a Client with NewClient, starting from DefaultClientOptions
// or a YAML file loaded with LoadOptionsFile. Subscribe to events with
// Client.On before calling Connect or ConnectAndWaitForModels.
package fcclient
