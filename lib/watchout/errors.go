package watchout

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by Send when no connection could be
// established for the command. The command is dropped.
var ErrNotConnected = errors.New("watchout: not connected")

// MissingParameterError reports an action that lacks a required parameter.
// Param is the option id the value is read from.
type MissingParameterError struct {
	Command string
	Param   string

	detail string
}

func (e *MissingParameterError) Error() string {
	detail := e.detail
	if detail == "" {
		detail = e.Param
	}
	return fmt.Sprintf("%s command for Watchout production triggered without %s", e.Command, detail)
}

// SocketError wraps a transport failure on the device connection.
type SocketError struct {
	Addr  string
	Cause error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.Addr, e.Cause)
}

func (e *SocketError) Unwrap() error {
	return e.Cause
}
