// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package vmnet

import (
	"errors"
	"fmt"
)

// Status is a vmnet_return_t as reported by the framework.
type Status uint32

// Values match vmnet_return_t in <vmnet/vmnet.h>.
const (
	StatusSuccess            Status = 1000
	StatusFailure            Status = 1001
	StatusMemFailure         Status = 1002
	StatusInvalidArgument    Status = 1003
	StatusSetupIncomplete    Status = 1004
	StatusInvalidAccess      Status = 1005
	StatusPacketTooBig       Status = 1006
	StatusBufferExhausted    Status = 1007
	StatusTooManyPackets     Status = 1008
	StatusSharingServiceBusy Status = 1009
)

// Sentinels matched by errors.Is against a Status.
var (
	ErrFailure            = errors.New("vmnet: general failure")
	ErrMemFailure         = errors.New("vmnet: memory allocation failure")
	ErrInvalidArgument    = errors.New("vmnet: invalid argument")
	ErrSetupIncomplete    = errors.New("vmnet: interface setup is not complete")
	ErrInvalidAccess      = errors.New("vmnet: permission denied")
	ErrPacketTooBig       = errors.New("vmnet: packet larger than max packet size")
	ErrBufferExhausted    = errors.New("vmnet: buffers exhausted in kernel")
	ErrTooManyPackets     = errors.New("vmnet: too many packets in one call")
	ErrSharingServiceBusy = errors.New("vmnet: sharing service busy")
)

var statusErrors = map[Status]error{
	StatusFailure:            ErrFailure,
	StatusMemFailure:         ErrMemFailure,
	StatusInvalidArgument:    ErrInvalidArgument,
	StatusSetupIncomplete:    ErrSetupIncomplete,
	StatusInvalidAccess:      ErrInvalidAccess,
	StatusPacketTooBig:       ErrPacketTooBig,
	StatusBufferExhausted:    ErrBufferExhausted,
	StatusTooManyPackets:     ErrTooManyPackets,
	StatusSharingServiceBusy: ErrSharingServiceBusy,
}

// Err returns nil for StatusSuccess and the Status itself otherwise.
func (s Status) Err() error {
	if s == StatusSuccess {
		return nil
	}
	return s
}

func (s Status) Error() string {
	if s == StatusSuccess {
		return "vmnet: success"
	}
	if err, ok := statusErrors[s]; ok {
		return err.Error()
	}
	return fmt.Sprintf("vmnet: unknown status %d", uint32(s))
}

// Is lets errors.Is match a Status against the package sentinels.
func (s Status) Is(target error) bool {
	if err, ok := statusErrors[s]; ok {
		return err == target
	}
	return false
}

// Temporary reports whether retrying the same call may succeed.
func (s Status) Temporary() bool {
	return s == StatusBufferExhausted || s == StatusSharingServiceBusy
}
