package domain

import (
	"strings"
	"time"
)

// HostID identifies a target host within a job. It is the address as the
// operator supplied it; duplicates in the host list are processed
// independently but share one result slot per identity.
type HostID string

// Host is a single distribution target. The SSH settings that apply to
// every host of a job live in [SSHConfig]; a Host carries only what is
// unique to it.
type Host struct {
	Address string
}

// ID returns the host's identity within the job.
func (h Host) ID() HostID { return HostID(h.Address) }

// SSHConfig is the job-wide remote access configuration shared by all
// hosts. Host-key verification is deliberately disabled: the tool targets
// ephemeral, registry-less fleets where keys churn with the machines.
type SSHConfig struct {
	User    string
	KeyPath string
	Port    int
	Timeout time.Duration
}

// ParseHostList splits a comma-separated host list, trimming whitespace
// and dropping empty entries.
func ParseHostList(s string) []Host {
	var hosts []Host
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		hosts = append(hosts, Host{Address: entry})
	}
	return hosts
}
