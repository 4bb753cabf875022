package dependency

import (
	"context"

	gopsnet "github.com/shirou/gopsutil/v3/net"
)

// NetworkInterfaceUp reports available when at least one non-loopback
// interface is administratively up, used to gate sources/sinks that need
// outbound connectivity.
type NetworkInterfaceUp struct {
	noopCloser
	name string
}

func NewNetworkInterfaceUp(name string) *NetworkInterfaceUp {
	return &NetworkInterfaceUp{name: name}
}

func (n *NetworkInterfaceUp) Name() string { return n.name }

func (n *NetworkInterfaceUp) IsDependencyAvailable(ctx context.Context) (bool, error) {
	ifaces, err := gopsnet.InterfacesWithContext(ctx)
	if err != nil {
		return false, err
	}
	for _, iface := range ifaces {
		if isLoopback(iface.Flags) {
			continue
		}
		if hasFlag(iface.Flags, "up") {
			return true, nil
		}
	}
	return false, nil
}

func isLoopback(flags []string) bool {
	return hasFlag(flags, "loopback")
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
