package domain

import "errors"

var (
	ErrMalformedNumericLiteral = errors.New("malformed numeric literal")
	ErrTickOutOfRange          = errors.New("tick out of range")
	ErrUnknownTradingPair      = errors.New("unknown trading pair")
	ErrAmbiguousAsset          = errors.New("ambiguous asset")
	ErrMalformedSnapshot       = errors.New("malformed snapshot")
	ErrNotConnected            = errors.New("not connected")
	ErrWSDisconnect            = errors.New("websocket disconnected")
	ErrSubscriptionFatal       = errors.New("subscription retries exhausted")
	ErrNotFound                = errors.New("not found")
	ErrLockHeld                = errors.New("lock already held")
)
