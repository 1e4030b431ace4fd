package collab

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessTools kills processes by listening port or by name.
type ProcessTools struct {
	connections func(ctx context.Context) ([]net.ConnectionStat, error)
	processes   func(ctx context.Context) ([]*process.Process, error)
	kill        func(ctx context.Context, pid int32) error
}

func NewProcessTools() *ProcessTools {
	return &ProcessTools{
		connections: func(ctx context.Context) ([]net.ConnectionStat, error) {
			return net.ConnectionsWithContext(ctx, "inet")
		},
		processes: process.ProcessesWithContext,
		kill: func(ctx context.Context, pid int32) error {
			p, err := process.NewProcessWithContext(ctx, pid)
			if err != nil {
				return err
			}
			return p.KillWithContext(ctx)
		},
	}
}

// KillPort kills every process bound to port and returns their pids. A free
// port is not an error.
func (t *ProcessTools) KillPort(ctx context.Context, port int) ([]int32, error) {
	conns, err := t.connections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	pids := portOwners(conns, uint32(port))
	for _, pid := range pids {
		if err := t.kill(ctx, pid); err != nil {
			return nil, fmt.Errorf("kill pid %d: %w", pid, err)
		}
	}
	return pids, nil
}

// KillByName kills processes whose executable name matches name, ignoring
// case and a trailing ".exe". It never kills the calling process.
func (t *ProcessTools) KillByName(ctx context.Context, name string) (int, error) {
	want := normalizeProcessName(name)
	if want == "" {
		return 0, fmt.Errorf("process name is required")
	}
	procs, err := t.processes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}
	self := int32(os.Getpid())
	killed := 0
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		n, err := p.NameWithContext(ctx)
		if err != nil || normalizeProcessName(n) != want {
			continue
		}
		if err := t.kill(ctx, p.Pid); err != nil {
			return killed, fmt.Errorf("kill %s (pid %d): %w", n, p.Pid, err)
		}
		killed++
	}
	if killed == 0 {
		return 0, fmt.Errorf("no process named %q", name)
	}
	return killed, nil
}

// portOwners returns the distinct nonzero pids listening on port, or
// holding it when nothing listens.
func portOwners(conns []net.ConnectionStat, port uint32) []int32 {
	listening := make(map[int32]bool)
	holding := make(map[int32]bool)
	for _, c := range conns {
		if c.Laddr.Port != port || c.Pid == 0 {
			continue
		}
		holding[c.Pid] = true
		if c.Status == "LISTEN" || c.Status == "NONE" || c.Status == "" {
			listening[c.Pid] = true
		}
	}
	set := listening
	if len(set) == 0 {
		set = holding
	}
	pids := make([]int32, 0, len(set))
	for pid := range set {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

func normalizeProcessName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".exe")
}
