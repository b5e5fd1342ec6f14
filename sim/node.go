// Defines the Node and Packet data model shared by the mobility, channel,
// topology and transport packages.

package sim

import (
	"fmt"
	"math"
	"net/netip"
)

// NodeID uniquely identifies a vehicle.
type NodeID int

// Vec2 is a planar vector in metres (positions) or metres per second (velocities).
type Vec2 struct {
	X float64
	Y float64
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Scale returns v*k.
func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }

// Norm returns the Euclidean length of v.
func (v Vec2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// DistanceTo returns the Euclidean distance between two positions.
func (v Vec2) DistanceTo(o Vec2) float64 { return math.Hypot(v.X-o.X, v.Y-o.Y) }

// Rect is an axis-aligned bounded region [MinX,MaxX] x [MinY,MaxY].
type Rect struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Contains reports whether p lies in r; points on the boundary are inside.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Width returns the extent of r along X.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the extent of r along Y.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Validate rejects empty or inverted rectangles.
func (r Rect) Validate() error {
	if !(r.MaxX > r.MinX) || !(r.MaxY > r.MinY) {
		return InvalidConfigf("bounds must have positive area, got x=[%g,%g] y=[%g,%g]", r.MinX, r.MaxX, r.MinY, r.MaxY)
	}
	return nil
}

// Node models a vehicle. Position and Velocity are mutated only by the
// mobility model; Address is assigned once by the topology registry.
type Node struct {
	ID       NodeID
	Position Vec2
	Velocity Vec2
	Address  netip.Addr
}

func (n *Node) String() string {
	return fmt.Sprintf("Node{id=%d addr=%s pos=(%.1f,%.1f)}", n.ID, n.Address, n.Position.X, n.Position.Y)
}

// PacketKind distinguishes application payloads from echo acknowledgements.
type PacketKind string

const (
	PacketData PacketKind = "data"
	PacketAck  PacketKind = "ack"
)

// Packet is created by a client endpoint, travels through the channel and is
// consumed by the endpoint bound to (Receiver, Port). It is never duplicated.
type Packet struct {
	Sender    NodeID
	Receiver  NodeID
	Port      uint16
	SizeBytes int
	SendTime  SimTime
	Seq       uint64
	Kind      PacketKind
}

func (p *Packet) String() string {
	return fmt.Sprintf("Packet{%s %d->%d:%d seq=%d size=%dB sent=%s}",
		p.Kind, p.Sender, p.Receiver, p.Port, p.Seq, p.SizeBytes, p.SendTime)
}
