package sensor

import (
	"log"
	"net"
	"strings"
	"time"

	"GreenConnect/internal/model"
)

// NetworkSource reports reachability and connection class.
type NetworkSource interface {
	Name() string
	// Live reports whether the connection class can be introspected.
	Live() bool
	Online() bool
	Type() string
	// Subscribe registers fn for online/offline transitions.
	Subscribe(fn func()) (cancel func())
}

// Iface is the subset of interface state used to derive connectivity.
type Iface struct {
	Name     string
	Up       bool
	Loopback bool
	HasAddr  bool
}

// DetectNetwork returns an interface-backed source, or a static one when the
// host refuses to list interfaces.
func DetectNetwork(watchInterval time.Duration) NetworkSource {
	if _, err := net.Interfaces(); err != nil {
		log.Printf("[WARN] network introspection unavailable, assuming online: %v", err)
		return StaticNetwork{OnlineFlag: true}
	}
	return NewInterfaceNetwork(systemInterfaces, watchInterval)
}

// InterfaceNetwork derives connectivity from the host's network interfaces.
type InterfaceNetwork struct {
	list          func() ([]Iface, error)
	watchInterval time.Duration
}

func NewInterfaceNetwork(list func() ([]Iface, error), watchInterval time.Duration) *InterfaceNetwork {
	return &InterfaceNetwork{list: list, watchInterval: watchInterval}
}

func (n *InterfaceNetwork) Name() string { return "interfaces" }
func (n *InterfaceNetwork) Live() bool   { return true }

func (n *InterfaceNetwork) Online() bool {
	return len(n.active()) > 0
}

// Type classifies the first active interface that has a known class.
func (n *InterfaceNetwork) Type() string {
	for _, iface := range n.active() {
		if t := classify(iface.Name); t != model.NetworkUnknown {
			return t
		}
	}
	return model.NetworkUnknown
}

// Subscribe fires fn when the online flag or connection class changes.
func (n *InterfaceNetwork) Subscribe(fn func()) func() {
	return watch(n.watchInterval, func() string {
		if !n.Online() {
			return "offline"
		}
		return n.Type()
	}, fn)
}

func (n *InterfaceNetwork) active() []Iface {
	ifaces, err := n.list()
	if err != nil {
		return nil
	}
	var out []Iface
	for _, i := range ifaces {
		if i.Up && !i.Loopback && i.HasAddr {
			out = append(out, i)
		}
	}
	return out
}

func classify(name string) string {
	switch {
	case strings.HasPrefix(name, "wl"), strings.HasPrefix(name, "wifi"):
		return "wifi"
	case strings.HasPrefix(name, "en"), strings.HasPrefix(name, "eth"):
		return "ethernet"
	case strings.HasPrefix(name, "ww"), strings.HasPrefix(name, "rmnet"), strings.HasPrefix(name, "ccmni"):
		return "cellular"
	}
	return model.NetworkUnknown
}

func systemInterfaces() ([]Iface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Iface, 0, len(ifaces))
	for _, i := range ifaces {
		addrs, _ := i.Addrs()
		out = append(out, Iface{
			Name:     i.Name,
			Up:       i.Flags&net.FlagUp != 0,
			Loopback: i.Flags&net.FlagLoopback != 0,
			HasAddr:  len(addrs) > 0,
		})
	}
	return out, nil
}

// StaticNetwork is the fallback when interfaces cannot be listed.
type StaticNetwork struct {
	OnlineFlag bool
}

func (s StaticNetwork) Name() string            { return "static" }
func (s StaticNetwork) Live() bool              { return false }
func (s StaticNetwork) Online() bool            { return s.OnlineFlag }
func (s StaticNetwork) Type() string            { return model.NetworkUnknown }
func (s StaticNetwork) Subscribe(func()) func() { return func() {} }
