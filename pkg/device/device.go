// Package device models the compute-device capability handed to the
// executor. A device is an opaque accelerator selector, injected rather
// than hardcoded, so a run can fan out over several devices.
package device

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Compute selects one accelerator for a collaborator invocation.
type Compute struct {
	ID int `json:"id"`
}

// Selector returns the value exported to the collaborator's environment
// (the accelerator-visibility convention).
func (c Compute) Selector() string {
	return fmt.Sprintf("%d", c.ID)
}

func (c Compute) String() string {
	return "device" + c.Selector()
}

// Pool builds the device list for a run. An empty configuration means the
// single-device baseline: device 0 only.
func Pool(ids []int) []Compute {
	if len(ids) == 0 {
		return []Compute{{ID: 0}}
	}
	devices := make([]Compute, len(ids))
	for i, id := range ids {
		devices[i] = Compute{ID: id}
	}
	return devices
}

// HostInfo is a snapshot of the machine a run executes on.
type HostInfo struct {
	Hostname     string
	Platform     string
	CPUCores     int
	TotalMemoryB uint64
}

// Host collects basic host facts for the pre-run log line. Best effort:
// fields that cannot be read stay zero.
func Host() HostInfo {
	var info HostInfo

	if hi, err := host.Info(); err == nil {
		info.Hostname = hi.Hostname
		info.Platform = hi.Platform
	}
	if n, err := cpu.Counts(true); err == nil {
		info.CPUCores = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemoryB = vm.Total
	}

	return info
}
