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

package phc

import (
	"fmt"
	"net"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/timetools/hwtrack/hwclock"
)

// Device is an open PTP hardware clock.
type Device struct {
	f *os.File
}

// Open opens a PHC device, i.e. /dev/ptp0. The path may also name a network
// interface, in which case its associated PHC is resolved and opened.
func Open(path string) (*Device, error) {
	if _, err := os.Stat(path); err != nil {
		resolved, rerr := DeviceFromIface(path)
		if rerr != nil {
			return nil, fmt.Errorf("%q is neither a PHC device nor an interface with PHC support: %w", path, err)
		}
		path = resolved
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Device{f: f}, nil
}

// Close closes the underlying device.
func (d *Device) Close() error {
	return d.f.Close()
}

// Path returns the path the device was opened from.
func (d *Device) Path() string {
	return d.f.Name()
}

// ClockID derives the POSIX clock ID of this device.
func (d *Device) ClockID() int32 {
	return fdToClockID(d.f.Fd())
}

// Time reads the current raw time of the hardware clock.
func (d *Device) Time() (time.Time, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(d.ClockID(), &ts); err != nil {
		return time.Time{}, fmt.Errorf("failed clock_gettime: %w", err)
	}
	return time.Unix(ts.Unix()), nil
}

// ReadReadings takes up to ptpMaxSamples round-trip readings of the hardware
// clock against the system clock using PTP_SYS_OFFSET_EXTENDED.
func (d *Device) ReadReadings(nsamples int) ([]hwclock.Reading, error) {
	if nsamples < 1 || nsamples > ptpMaxSamples {
		nsamples = ptpMaxSamples
	}
	res := &PTPSysOffsetExtended{
		NSamples: uint32(nsamples),
	}
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL, d.f.Fd(),
		ioctlPTPSysOffsetExtended,
		uintptr(unsafe.Pointer(res)),
	)
	if errno != 0 {
		return nil, fmt.Errorf("failed PTP_SYS_OFFSET_EXTENDED %s (%d)", unix.ErrnoName(errno), errno)
	}
	return res.Readings(), nil
}

// Ifreq is the request we send with SIOCETHTOOL IOCTL
// as per Linux kernel's include/uapi/linux/if.h
type Ifreq struct {
	Name [unix.IFNAMSIZ]byte
	Data uintptr
}

// EthtoolTSinfo holds a device's timestamping and PHC association
// as per Linux kernel's include/uapi/linux/ethtool.h
type EthtoolTSinfo struct {
	Cmd            uint32
	SOtimestamping uint32
	PHCIndex       int32
	TXTypes        uint32
	TXReserved     [3]uint32
	RXFilters      uint32
	RXReserved     [3]uint32
}

// IfaceInfo uses SIOCETHTOOL ioctl to get information for the given nic, i.e. eth0.
func IfaceInfo(iface string) (*EthtoolTSinfo, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket for ioctl: %w", err)
	}
	defer unix.Close(fd)
	// this is what we want to be populated, but we need to provide Cmd first
	data := &EthtoolTSinfo{
		Cmd: unix.ETHTOOL_GET_TS_INFO,
	}
	ifreq := &Ifreq{}
	copy(ifreq.Name[:unix.IFNAMSIZ-1], iface)
	ifreq.Data = uintptr(unsafe.Pointer(data))
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL, uintptr(fd),
		uintptr(unix.SIOCETHTOOL),
		uintptr(unsafe.Pointer(ifreq)),
	)
	if errno != 0 {
		return nil, fmt.Errorf("failed get phc ID: %w", errno)
	}
	return data, nil
}

// DeviceFromIface returns a path to a PHC device from a network interface
func DeviceFromIface(iface string) (string, error) {
	if _, err := net.InterfaceByName(iface); err != nil {
		return "", fmt.Errorf("%s interface is not found", iface)
	}
	info, err := IfaceInfo(iface)
	if err != nil {
		return "", err
	}
	if info.PHCIndex < 0 {
		return "", fmt.Errorf("no PHC support for %s", iface)
	}
	return fmt.Sprintf("/dev/ptp%d", info.PHCIndex), nil
}
