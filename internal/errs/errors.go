// Package errs carries the VoiceSync error taxonomy. Every error has a
// stable machine-readable code and a human message, so callers can branch
// on the code while the TUI prints the message.
package errs

import (
	"errors"
	"fmt"
)

// Kind groups codes by the subsystem that produced the error.
type Kind string

const (
	KindSignaling Kind = "signaling"
	KindRoom      Kind = "room"
	KindAudio     Kind = "audio"
	KindPeer      Kind = "peer"
)

// Code is a stable error identifier.
type Code string

const (
	// Signaling transport.
	CodeConnectFailed Code = "CONNECT_FAILED"
	CodeWSError       Code = "WS_ERROR"
	CodeConnLost      Code = "CONN_LOST"

	// Rooms.
	CodeRoomNotFound  Code = "ROOM_NOT_FOUND"
	CodeAlreadyInRoom Code = "ALREADY_IN_ROOM"
	CodeRoomError     Code = "ROOM_ERROR"

	// Audio.
	CodeMicOpenFailed  Code = "MIC_OPEN_FAILED"
	CodeMicStreamError Code = "MIC_STREAM_ERROR"
	CodeAudioError     Code = "AUDIO_ERROR"

	// Peer connections.
	CodeWebRTCError Code = "WEBRTC_ERROR"
	CodePeerError   Code = "PEER_ERROR"
)

// Error is the one concrete error type used across the client and server.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error should end the active call.
func (e *Error) Fatal() bool {
	return e.Code == CodeConnLost
}

func Signaling(code Code, message string, err error) *Error {
	return &Error{Kind: KindSignaling, Code: code, Message: message, Err: err}
}

func Room(code Code, message string) *Error {
	return &Error{Kind: KindRoom, Code: code, Message: message}
}

func Audio(code Code, message string, err error) *Error {
	return &Error{Kind: KindAudio, Code: code, Message: message, Err: err}
}

func Peer(code Code, message string, err error) *Error {
	return &Error{Kind: KindPeer, Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
