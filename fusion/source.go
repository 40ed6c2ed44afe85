package fusion

import "github.com/westphae/insgps/packet"

// Source is the pull interface the controller consumes packets through,
// per spec.md §6's "consumed from packet decoder" contract and §5's
// single-threaded, cooperative-by-call-ordering concurrency model: the
// controller calls Next and blocks on whatever I/O the implementation
// performs, with no internal suspension points of its own.
type Source interface {
	Next() (packet.Packet, error)
}
