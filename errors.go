package fcclient

import "errors"

var (
	// ErrLoginRejected is delivered to waiting EnsureConnected and
	// ConnectAndWaitForModels callers when the server's LOGIN response
	// carries a nonzero nArg1. No automatic retry follows. Connect itself
	// returns once Active is reached, before the LOGIN response arrives, so
	// it never returns this error.
	ErrLoginRejected = errors.New("fcclient: login rejected")

	// ErrManualDisconnect is delivered to any in-flight EnsureConnected,
	// JoinRoom, or QueryUser waiter when Disconnect is called.
	ErrManualDisconnect = errors.New("fcclient: disconnected")

	// ErrConnectionTimeout is returned when connectionTimeout elapses
	// before Active is reached.
	ErrConnectionTimeout = errors.New("fcclient: connection timed out")

	// ErrJoinRefused is returned to JoinRoom's caller on ZBAN, BANCHAN,
	// or a JOINCHAN(PART) for the target room.
	ErrJoinRefused = errors.New("fcclient: join refused")

	// ErrNotConnected is returned by operations that require an Active
	// connection (TxCmd, SendChat, SendPM, QueryUser) when none exists.
	ErrNotConnected = errors.New("fcclient: not connected")

	// ErrIdle is returned by EnsureConnected when the client is Idle.
	ErrIdle = errors.New("fcclient: idle")
)
