// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package vmnet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Device = (*Interface)(nil)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "shared", want: ModeShared},
		{in: "HOST", want: ModeHost},
		{in: " bridged ", want: ModeBridged},
		{in: "nat", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidOptions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Mode {
	t.Helper()
	m, err := ParseMode(s)
	require.NoError(t, err)
	return m
}

func TestModeStringUnknown(t *testing.T) {
	assert.Equal(t, "mode(7)", Mode(7).String())
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{
			name: "shared defaults",
			opts: Options{Mode: ModeShared},
		},
		{
			name: "host mode",
			opts: Options{Mode: ModeHost},
		},
		{
			name: "bridged with interface",
			opts: Options{Mode: ModeBridged, SharedInterface: "en0"},
		},
		{
			name:    "bridged without interface",
			opts:    Options{Mode: ModeBridged},
			wantErr: "bridged mode requires a shared interface",
		},
		{
			name:    "shared interface outside bridged mode",
			opts:    Options{Mode: ModeShared, SharedInterface: "en0"},
			wantErr: "only valid in bridged mode",
		},
		{
			name:    "unknown mode",
			opts:    Options{Mode: Mode(1)},
			wantErr: "unknown mode 1",
		},
		{
			name: "shared dhcp range",
			opts: Options{Mode: ModeShared, StartAddress: "192.168.105.2", EndAddress: "192.168.105.254", SubnetMask: "255.255.255.0"},
		},
		{
			name:    "partial dhcp range",
			opts:    Options{Mode: ModeShared, StartAddress: "192.168.105.2"},
			wantErr: "must be set together",
		},
		{
			name:    "dhcp range in host mode",
			opts:    Options{Mode: ModeHost, StartAddress: "192.168.105.2", EndAddress: "192.168.105.254", SubnetMask: "255.255.255.0"},
			wantErr: "only valid in shared mode",
		},
		{
			name:    "dhcp range not ipv4",
			opts:    Options{Mode: ModeShared, StartAddress: "fd00::2", EndAddress: "192.168.105.254", SubnetMask: "255.255.255.0"},
			wantErr: "must be IPv4",
		},
		{
			name:    "dhcp range across subnets",
			opts:    Options{Mode: ModeShared, StartAddress: "192.168.105.2", EndAddress: "192.168.106.254", SubnetMask: "255.255.255.0"},
			wantErr: "spans more than one subnet",
		},
		{
			name:    "dhcp range reversed",
			opts:    Options{Mode: ModeShared, StartAddress: "192.168.105.200", EndAddress: "192.168.105.2", SubnetMask: "255.255.255.0"},
			wantErr: "is after end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOptions)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStatus(t *testing.T) {
	assert.NoError(t, StatusSuccess.Err())

	err := StatusInvalidAccess.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAccess)
	assert.NotErrorIs(t, err, ErrFailure)
	assert.Equal(t, ErrInvalidAccess.Error(), err.Error())

	var status Status
	require.True(t, errors.As(err, &status))
	assert.Equal(t, StatusInvalidAccess, status)

	unknown := Status(4242)
	assert.Equal(t, "vmnet: unknown status 4242", unknown.Error())
	assert.False(t, errors.Is(unknown, ErrFailure))

	assert.True(t, StatusBufferExhausted.Temporary())
	assert.True(t, StatusSharingServiceBusy.Temporary())
	assert.False(t, StatusPacketTooBig.Temporary())
}

func TestStatusWrapped(t *testing.T) {
	err := errors.Join(ErrUnableToStart, StatusSharingServiceBusy)
	assert.ErrorIs(t, err, ErrUnableToStart)
	assert.ErrorIs(t, err, ErrSharingServiceBusy)
}
