// Package frame defines the deliverable representations of a decoded video
// frame and the descriptors handed to the host renderer.
package frame

import (
	"github.com/asticode/go-astiav"
)

// Representation is the payload of one frame-buffer slot. Exactly one
// representation is active per slot at a time:
//
//   - Reference: zero-copy, a cloned reference to decoder-owned memory;
//   - OwnedPlanes: an owned contiguous luma+chroma copy (hardware frames);
//   - OwnedInterleaved: an owned interleaved 4-channel 8-bit buffer
//     (software-decoded frames converted to BGRA).
type Representation interface {
	// Release returns any underlying resources; the representation must not
	// be used afterwards. It is safe to call Release more than once.
	Release()
}

// Reference wraps a decoded frame by reference (zero-copy).
type Reference struct {
	Frame *astiav.Frame
}

func (r *Reference) Release() {
	if r.Frame == nil {
		return
	}
	Pool.Put(r.Frame)
	r.Frame = nil
}

// PixelFormat returns the pixel format of the referenced frame.
func (r *Reference) PixelFormat() astiav.PixelFormat {
	return r.Frame.PixelFormat()
}

// OwnedPlanes is an owned planar copy: a single contiguous buffer holding the
// luma plane followed by the chroma plane, with safety padding at the end.
type OwnedPlanes struct {
	Buffer  []byte
	Planes  [][]byte
	Strides []int
	Format  astiav.PixelFormat
}

func (p *OwnedPlanes) Release() {
	// The buffer is reused across decode cycles while its geometry is stable;
	// dropping the slices is enough for the GC once the slot lets go.
	p.Planes = nil
	p.Buffer = nil
	p.Strides = nil
}

// OwnedInterleaved is an owned interleaved 4-channel 8-bit buffer.
type OwnedInterleaved struct {
	Data   []byte
	Stride int
}

func (i *OwnedInterleaved) Release() {
	i.Data = nil
}
