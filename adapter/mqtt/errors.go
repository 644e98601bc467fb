package mqtt

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by the paho backend when an operation needs a live connection.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrUnsupportedScheme is returned when the endpoint URL scheme is not one paho can dial.
	ErrUnsupportedScheme = errors.New("mqtt: unsupported endpoint scheme")
)

// ConstructionError is returned by New when the backend could not be created.
type ConstructionError struct {
	Endpoint string
	ClientID string
	Err      error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("mqtt: creating client %q for %s: %s", e.ClientID, e.Endpoint, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// ErrTimeout is passed to OnFailure when a connect or subscribe did not complete within the requested timeout.
var ErrTimeout = errors.New("mqtt: operation timed out")
