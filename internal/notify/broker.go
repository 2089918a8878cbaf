package notify

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"

	"github.com/arkeindustries/requestcore/pkg/log"
)

// ErrBrokerDown is the broker-down condition spec §4.7 requires a
// processor node to raise and tear down on.
var ErrBrokerDown = errors.New("notify: broker connection lost")

// TCPBroker is the broker link spec §4.7/§6 describes literally: a single
// outbound connection used by a processor node, over which a notification
// frame is forwarded with its target authenticated id appended as an
// 8-byte little-endian suffix. Per spec, it is connected once at startup
// and never re-established after a loss — "no best-effort survival".
type TCPBroker struct {
	mu   sync.Mutex
	conn net.Conn
	down bool
}

// DialTCPBroker connects to a broker endpoint. There is no retry: a failed
// dial is the caller's problem to handle at startup.
func DialTCPBroker(addr string) (*TCPBroker, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	log.Infof("notify: connected to broker at %s", addr)
	return &TCPBroker{conn: conn}, nil
}

// Forward writes frame followed by targetID (LE u64) to the broker
// connection. Any write error permanently marks the broker down; it is
// never retried or reconnected (spec §4.7, §5 "Resource lifecycle").
func (b *TCPBroker) Forward(frame []byte, targetID uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.down {
		return ErrBrokerDown
	}

	var suffix [8]byte
	binary.LittleEndian.PutUint64(suffix[:], targetID)

	if _, err := b.conn.Write(frame); err != nil {
		b.down = true
		return ErrBrokerDown
	}
	if _, err := b.conn.Write(suffix[:]); err != nil {
		b.down = true
		return ErrBrokerDown
	}
	return nil
}

// Close closes the underlying connection.
func (b *TCPBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = true
	return b.conn.Close()
}

var _ Broker = (*TCPBroker)(nil)
