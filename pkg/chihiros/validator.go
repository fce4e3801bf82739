// SPDX-License-Identifier: Apache-2.0

package chihiros

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyTooShort AnomalyType = iota
	AnomalyBadMarker
	AnomalyLengthMismatch
	AnomalyChecksumError
	AnomalySentinelParam
	AnomalySentinelMessageID
	AnomalyInvalidValue
)

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks frame structure and the sentinel invariants.
// Returns a slice of validation errors (empty if the frame is valid).
func ValidateFrame(f Frame) []ValidationError {
	if len(f) < frameOverhead {
		return []ValidationError{{
			Type:    AnomalyTooShort,
			Message: fmt.Sprintf("frame too short (%d bytes, minimum %d)", len(f), frameOverhead),
			Details: map[string]interface{}{"length": len(f), "minimum": frameOverhead},
		}}
	}

	errors := []ValidationError{}

	if f[1] != frameConstByte {
		errors = append(errors, ValidationError{
			Type:    AnomalyBadMarker,
			Message: fmt.Sprintf("bad frame marker 0x%02X (want 0x%02X)", f[1], frameConstByte),
			Details: map[string]interface{}{"marker": f[1]},
		})
	}

	if want := len(f) - 2; int(f.DeclaredLength()) != want {
		errors = append(errors, ValidationError{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("declared length %d does not match frame size (want %d)", f.DeclaredLength(), want),
			Details: map[string]interface{}{"declared": int(f.DeclaredLength()), "expected": want},
		})
		// Field offsets are unreliable past this point.
		return errors
	}

	if sum := Checksum(f[:len(f)-1]); sum != f.Checksum() {
		errors = append(errors, ValidationError{
			Type:    AnomalyChecksumError,
			Message: fmt.Sprintf("checksum mismatch: expected 0x%02X, got 0x%02X", sum, f.Checksum()),
			Details: map[string]interface{}{"expected": sum, "got": f.Checksum()},
		})
	}

	id := f.MessageID()
	if id.High == Sentinel || id.Low == Sentinel {
		errors = append(errors, ValidationError{
			Type:    AnomalySentinelMessageID,
			Message: fmt.Sprintf("message id %s contains the sentinel byte", id),
			Details: map[string]interface{}{"high": id.High, "low": id.Low},
		})
	}

	for i, p := range f.Params() {
		if p == Sentinel {
			errors = append(errors, ValidationError{
				Type:    AnomalySentinelParam,
				Message: fmt.Sprintf("parameter %d is the sentinel byte", i),
				Details: map[string]interface{}{"index": i},
			})
		}
	}

	switch f.CmdID() {
	case CmdLED:
		errors = append(errors, validateLEDFrame(f)...)
	case CmdAuto:
		errors = append(errors, validateAutoFrame(f)...)
	}

	return errors
}

// validateLEDFrame checks the value ranges of command-id 0x5A modes.
func validateLEDFrame(f Frame) []ValidationError {
	errors := []ValidationError{}
	params := f.Params()

	switch f.Mode() {
	case ModeManualSetting:
		if len(params) == 2 && params[1] > MaxBrightness {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("brightness %d exceeds maximum %d", params[1], MaxBrightness),
				Details: map[string]interface{}{"brightness": params[1], "max": MaxBrightness},
			})
		}
	case ModeSetTime:
		if len(params) == 6 {
			if params[3] > 23 || params[4] > 59 || params[5] > 59 {
				errors = append(errors, ValidationError{
					Type:    AnomalyInvalidValue,
					Message: fmt.Sprintf("invalid clock value %02d:%02d:%02d", params[3], params[4], params[5]),
					Details: map[string]interface{}{"hour": params[3], "minute": params[4], "second": params[5]},
				})
			}
		}
	}

	return errors
}

// validateAutoFrame checks the value ranges of command-id 0xA5 modes.
func validateAutoFrame(f Frame) []ValidationError {
	errors := []ValidationError{}
	params := f.Params()

	switch f.Mode() {
	case ModeAddAuto:
		if len(params) >= 6 {
			if params[0] > 23 || params[1] > 59 || params[2] > 23 || params[3] > 59 {
				errors = append(errors, ValidationError{
					Type:    AnomalyInvalidValue,
					Message: fmt.Sprintf("invalid schedule window %02d:%02d-%02d:%02d", params[0], params[1], params[2], params[3]),
					Details: map[string]interface{}{"sunrise_hour": params[0], "sunset_hour": params[2]},
				})
			}
			if params[4] > MaxRampUpMinutes {
				errors = append(errors, ValidationError{
					Type:    AnomalyInvalidValue,
					Message: fmt.Sprintf("ramp-up %d exceeds maximum %d minutes", params[4], MaxRampUpMinutes),
					Details: map[string]interface{}{"ramp_up": params[4], "max": MaxRampUpMinutes},
				})
			}
			if params[5] > byte(Everyday) {
				errors = append(errors, ValidationError{
					Type:    AnomalyInvalidValue,
					Message: fmt.Sprintf("weekday mask %d exceeds maximum %d", params[5], Everyday),
					Details: map[string]interface{}{"mask": params[5], "max": byte(Everyday)},
				})
			}
		}
	case ModeDoserTimer:
		if len(params) >= 4 {
			if params[0] > MaxDoserChannel {
				errors = append(errors, ValidationError{
					Type:    AnomalyInvalidValue,
					Message: fmt.Sprintf("doser channel %d exceeds maximum %d", params[0], MaxDoserChannel),
					Details: map[string]interface{}{"channel": params[0], "max": MaxDoserChannel},
				})
			}
			if params[2] > 23 || params[3] > 59 {
				errors = append(errors, ValidationError{
					Type:    AnomalyInvalidValue,
					Message: fmt.Sprintf("invalid timer time %02d:%02d", params[2], params[3]),
					Details: map[string]interface{}{"hour": params[2], "minute": params[3]},
				})
			}
		}
	case ModeDoserDose, ModeDoserAutoSwitch:
		if len(params) >= 1 && params[0] > MaxDoserChannel {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("doser channel %d exceeds maximum %d", params[0], MaxDoserChannel),
				Details: map[string]interface{}{"channel": params[0], "max": MaxDoserChannel},
			})
		}
	}

	return errors
}
