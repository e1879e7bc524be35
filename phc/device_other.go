/*
Copyright (c) Timetools, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

//go:build !linux

package phc

import (
	"errors"
	"time"

	"github.com/timetools/hwtrack/hwclock"
)

var errNotSupported = errors.New("PHC devices are only available on linux")

// Device is an open PTP hardware clock. Not available on this platform.
type Device struct{}

// Open fails; PHC devices require linux.
func Open(path string) (*Device, error) {
	return nil, errNotSupported
}

// Close closes the underlying device.
func (d *Device) Close() error {
	return errNotSupported
}

// Path returns the path the device was opened from.
func (d *Device) Path() string {
	return ""
}

// Time reads the current raw time of the hardware clock.
func (d *Device) Time() (time.Time, error) {
	return time.Time{}, errNotSupported
}

// ReadReadings takes round-trip readings of the hardware clock against the
// system clock.
func (d *Device) ReadReadings(nsamples int) ([]hwclock.Reading, error) {
	return nil, errNotSupported
}

// DeviceFromIface returns a path to a PHC device from a network interface
func DeviceFromIface(iface string) (string, error) {
	return "", errNotSupported
}
