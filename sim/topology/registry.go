// Package topology tracks node identities and their logical network addresses.
package topology

import (
	"fmt"
	"net/netip"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/vanet-sim/vanet-sim/sim"
)

// DefaultPrefix is the subnet addresses are drawn from when none is configured.
const DefaultPrefix = "10.1.1.0/24"

// Registry assigns addresses sequentially from a prefix and resolves them back
// to nodes. Addresses are write-once: a node keeps the address it was issued.
type Registry struct {
	prefix    netip.Prefix
	next      netip.Addr
	broadcast netip.Addr
	byAddr    map[netip.Addr]*sim.Node
	byID      map[sim.NodeID]*sim.Node
}

// NewRegistry creates a registry handing out host addresses from prefix,
// starting at the first host after the network address.
func NewRegistry(prefix string) (*Registry, error) {
	p, err := netip.ParsePrefix(prefix)
	if err != nil {
		return nil, sim.InvalidConfigf("address prefix %q: %v", prefix, err)
	}
	if !p.Addr().Is4() {
		return nil, sim.InvalidConfigf("address prefix %q: only IPv4 subnets are supported", prefix)
	}
	if p.Bits() > 30 {
		return nil, sim.InvalidConfigf("address prefix %q has no room for hosts", prefix)
	}
	p = p.Masked()
	return &Registry{
		prefix:    p,
		next:      p.Addr().Next(),
		broadcast: broadcastOf(p),
		byAddr:    make(map[netip.Addr]*sim.Node),
		byID:      make(map[sim.NodeID]*sim.Node),
	}, nil
}

// broadcastOf returns the all-ones host address of an IPv4 prefix.
func broadcastOf(p netip.Prefix) netip.Addr {
	hostBits := 32 - p.Bits()
	v := toUint32(p.Addr()) | (uint32(1)<<hostBits - 1)
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func toUint32(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// HostCapacity returns how many nodes a registry over prefix can address.
func HostCapacity(prefix string) (int, error) {
	r, err := NewRegistry(prefix)
	if err != nil {
		return 0, err
	}
	return r.Free(), nil
}

// Prefix returns the subnet the registry allocates from.
func (r *Registry) Prefix() netip.Prefix {
	return r.prefix
}

// RegisterNode issues the next free address to n and records it.
// Registering the same node ID twice, or exhausting the subnet, is an error.
func (r *Registry) RegisterNode(n *sim.Node) (netip.Addr, error) {
	if n == nil {
		return netip.Addr{}, fmt.Errorf("register nil node")
	}
	if _, exists := r.byID[n.ID]; exists {
		return netip.Addr{}, fmt.Errorf("node %d already registered", n.ID)
	}
	if n.Address.IsValid() {
		return netip.Addr{}, fmt.Errorf("node %d already has address %s", n.ID, n.Address)
	}
	if !r.prefix.Contains(r.next) || r.next == r.broadcast {
		return netip.Addr{}, fmt.Errorf("address prefix %s exhausted after %d nodes", r.prefix, len(r.byID))
	}
	addr := r.next
	r.next = r.next.Next()

	n.Address = addr
	r.byAddr[addr] = n
	r.byID[n.ID] = n
	logrus.Debugf("registered node %d at %s", n.ID, addr)
	return addr, nil
}

// Free returns the number of addresses still available.
func (r *Registry) Free() int {
	if !r.prefix.Contains(r.next) || r.next == r.broadcast {
		return 0
	}
	return int(toUint32(r.broadcast) - toUint32(r.next))
}

// Lookup resolves an address to its node.
func (r *Registry) Lookup(addr netip.Addr) (*sim.Node, error) {
	n, ok := r.byAddr[addr]
	if !ok {
		return nil, &sim.UnknownAddressError{Key: addr.String()}
	}
	return n, nil
}

// Node resolves a node ID.
func (r *Registry) Node(id sim.NodeID) (*sim.Node, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, &sim.UnknownAddressError{Key: fmt.Sprintf("node/%d", id)}
	}
	return n, nil
}

// Nodes returns every registered node ordered by ID.
func (r *Registry) Nodes() []*sim.Node {
	nodes := make([]*sim.Node, 0, len(r.byID))
	for _, n := range r.byID {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	return len(r.byID)
}
