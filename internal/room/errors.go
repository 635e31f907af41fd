package room

import "errors"

var (
	ErrRoomFull         = errors.New("room is full")
	ErrRoomLocked       = errors.New("room is locked")
	ErrRoomDisposed     = errors.New("room is disposed")
	ErrRoomNotFound     = errors.New("room not found")
	ErrUnknownRoomType  = errors.New("unknown room type")
	ErrBanned           = errors.New("user is banned")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("session already has a seat")
	ErrNotReserved      = errors.New("session has no reserved seat")
	ErrDefinitionExists = errors.New("room type already defined")
)
