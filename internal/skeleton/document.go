package skeleton

import (
	"fmt"
	"time"
)

// Curve holds the per-frame samples for one channel of one joint.
type Curve struct {
	Joint   string      `json:"joint"`
	Kind    ChannelKind `json:"kind"`
	Samples []float64   `json:"samples"`
}

// Document is a fully parsed motion clip: the skeleton plus the flat array
// of channel curves. Curves are laid out in depth-first pre-order over the
// joint tree, each joint's channels contiguous and in declaration order.
// A document is immutable after construction and safe for concurrent reads.
type Document struct {
	Root       *Node   `json:"root"`
	FrameCount int     `json:"frame_count"`
	FrameTime  float64 `json:"frame_time"`
	Curves     []Curve `json:"curves"`
}

// Duration is the clip length (frame count times seconds per frame).
func (d *Document) Duration() time.Duration {
	return time.Duration(float64(d.FrameCount) * d.FrameTime * float64(time.Second))
}

// JointCount counts the channel-owning nodes in the tree.
func (d *Document) JointCount() int {
	n := 0
	for range d.Root.All() {
		n++
	}
	return n
}

// Find returns the named joint, or nil.
func (d *Document) Find(name string) *Node {
	return d.Root.Find(name)
}

// JointCurves returns the contiguous slice of the flat curve array belonging
// to the named joint, or nil if the joint does not exist.
func (d *Document) JointCurves(name string) []Curve {
	off := 0
	for node := range d.Root.All() {
		if node.Name == name {
			return d.Curves[off : off+len(node.Channels)]
		}
		off += len(node.Channels)
	}
	return nil
}

// Sample returns the named joint's channel values at the given frame, in
// channel declaration order.
func (d *Document) Sample(name string, frame int) ([]float64, error) {
	if frame < 0 || frame >= d.FrameCount {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", frame, d.FrameCount)
	}
	curves := d.JointCurves(name)
	if curves == nil {
		return nil, fmt.Errorf("unknown joint %q", name)
	}
	values := make([]float64, len(curves))
	for i, c := range curves {
		values[i] = c.Samples[frame]
	}
	return values, nil
}
