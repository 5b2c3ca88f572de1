// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esploader

import (
	"fmt"

	"github.com/juju/errors"
)

// ROM loader error codes
const (
	romErrInvalidMessage = 0x05
	romErrFailedToAct    = 0x06
	romErrInvalidCRC     = 0x07
	romErrFlashWrite     = 0x08
	romErrFlashRead      = 0x09
	romErrReadLength     = 0x0A
	romErrDeflate        = 0x0B
)

// CommandError reports a command the ROM answered with a failure status
type CommandError struct {
	Op     byte
	Status byte
	Code   byte
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %s (status 0x%02X, code 0x%02X)", opName(e.Op), romErrorName(e.Code), e.Status, e.Code)
}

// IsCommandError returns true if the cause of err is a CommandError
func IsCommandError(err error) bool {
	_, ok := errors.Cause(err).(*CommandError)
	return ok
}

func romErrorName(code byte) string {
	switch code {
	case romErrInvalidMessage:
		return "received message is invalid"
	case romErrFailedToAct:
		return "failed to act on received message"
	case romErrInvalidCRC:
		return "invalid CRC in message"
	case romErrFlashWrite:
		return "flash write error"
	case romErrFlashRead:
		return "flash read error"
	case romErrReadLength:
		return "flash read length error"
	case romErrDeflate:
		return "deflate error"
	default:
		return "unknown error"
	}
}
