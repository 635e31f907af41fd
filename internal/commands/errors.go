package commands

import "errors"

// ErrUnknownMessage is returned when no handler is registered for a message type.
var ErrUnknownMessage = errors.New("unknown message type")
