package notify

import (
	"encoding/binary"
	"fmt"

	"github.com/arkeindustries/requestcore/pkg/log"
	"github.com/nats-io/nats.go"
)

// NATSBroker is an alternate Broker transport for deployments that prefer
// pub/sub fan-out between many processors over a single point-to-point
// link. It satisfies the same Broker interface as TCPBroker (SPEC_FULL.md
// DOMAIN STACK), publishing each forwarded frame on a subject scoped to
// the node's configured area, with the target id appended exactly as the
// TCP broker does so a receiving router can treat both transports
// identically.
type NATSBroker struct {
	conn    *nats.Conn
	subject string
}

// DialNATSBroker connects to a NATS server and prepares to publish
// forwarded notifications on "requestcore.broker.<subject>".
func DialNATSBroker(addr, subject string) (*NATSBroker, error) {
	nc, err := nats.Connect(addr,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("notify: NATS broker disconnected: %v", err)
			}
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Errorf("notify: NATS broker error: %v", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: NATS connect failed: %w", err)
	}
	log.Infof("notify: connected to NATS broker at %s", addr)
	return &NATSBroker{conn: nc, subject: "requestcore.broker." + subject}, nil
}

// Forward publishes frame+targetID (LE u64 suffix) to the broker subject.
// Per spec §4.7, a processor does not survive broker loss: publish errors
// are reported as ErrBrokerDown exactly like the TCP transport, even
// though the underlying NATS client would otherwise reconnect on its own.
func (b *NATSBroker) Forward(frame []byte, targetID uint64) error {
	var suffix [8]byte
	binary.LittleEndian.PutUint64(suffix[:], targetID)
	payload := append(append([]byte(nil), frame...), suffix[:]...)
	if err := b.conn.Publish(b.subject, payload); err != nil {
		return ErrBrokerDown
	}
	return nil
}

// Close closes the NATS connection without draining it first.
func (b *NATSBroker) Close() error {
	b.conn.Close()
	return nil
}

var _ Broker = (*NATSBroker)(nil)
