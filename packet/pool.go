// pool.go implements a pool for reusing astiav.Packet objects.

package packet

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avplayback/pool"
)

var Pool = pool.NewPool(
	astiav.AllocPacket,
	func(p *astiav.Packet) { p.Unref() },
	func(p *astiav.Packet) { p.Free() },
)
