// pool.go implements a pool for reusing astiav.Frame objects.

package frame

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avplayback/pool"
)

var Pool = pool.NewPool(
	astiav.AllocFrame,
	func(f *astiav.Frame) { f.Unref() },
	func(f *astiav.Frame) { f.Free() },
)

// CloneAsReferenced returns a pooled frame referencing the same pixel data as
// src (the reference is cloned, not the data).
func CloneAsReferenced(src *astiav.Frame) *astiav.Frame {
	dst := Pool.Get()
	dst.Ref(src)
	return dst
}
