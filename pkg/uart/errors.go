// SPDX-License-Identifier: Apache-2.0

package uart

import (
	"errors"
	"fmt"
)

// ErrDeviceUnreachable is returned when the carrier cannot find the device
// at all (not advertising, port missing, gateway unknown address). Retrying
// a write will not help, so the session fails fast on it.
var ErrDeviceUnreachable = errors.New("device unreachable")

// CharacteristicMissingError is returned when a device connects but does
// not expose a required GATT characteristic. This indicates a wrong or
// incompatible device rather than a transient fault.
type CharacteristicMissingError struct {
	UUID string
}

func (e *CharacteristicMissingError) Error() string {
	return fmt.Sprintf("characteristic %s missing on device", e.UUID)
}

// isRetryable reports whether a write failure is worth a reconnect-and-retry
// cycle. Unreachable devices and missing characteristics are permanent for
// the duration of the command.
func isRetryable(err error) bool {
	if errors.Is(err, ErrDeviceUnreachable) {
		return false
	}
	var cm *CharacteristicMissingError
	return !errors.As(err, &cm)
}
