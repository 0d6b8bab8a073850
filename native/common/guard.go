package common

import "errors"

// OpenGate admits every caller when stored as a switch value.
const OpenGate = "1"

var ErrGateClosed = errors.New("gate closed")

// Guard admits the caller when the gate is open or names the caller exactly.
func Guard(gate, caller string) error {
	if gate == OpenGate {
		return nil
	}
	if gate != "" && gate == caller {
		return nil
	}
	return ErrGateClosed
}
