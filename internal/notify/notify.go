// Package notify implements the notification fan-out and broker/processor
// topology described in spec §4.7: a process-wide authenticated_id →
// connections map, and an optional broker link used to forward
// notifications addressed outside the local node's area.
package notify

import "sync"

// Notification is the payload a handler enqueues for asynchronous
// delivery after a successful commit (spec §3). Frame is the complete
// wire frame to deliver (spec §6 "handler-originated notification
// frame") — dispatch appends nothing to it for local delivery; the
// broker-forward envelope suffix is added by the Broker's Forward only on
// the forwarding path.
type Notification struct {
	TargetAuthenticatedID uint64
	Frame                 []byte
}

// BuildFrame assembles a notification frame in the same u32-length-prefix
// style as a response frame (spec §6): length | u16 type | payload.
func BuildFrame(notificationType uint16, payload []byte) []byte {
	body := make([]byte, 2+len(payload))
	body[0] = byte(notificationType >> 8)
	body[1] = byte(notificationType)
	copy(body[2:], payload)

	frame := make([]byte, 4+len(body))
	length := uint32(len(body))
	frame[0] = byte(length >> 24)
	frame[1] = byte(length >> 16)
	frame[2] = byte(length >> 8)
	frame[3] = byte(length)
	copy(frame[4:], body)
	return frame
}

// Conn is the minimal send-side surface the transport must expose for a
// logged-in connection. Connection lifecycle and framing live in the
// transport, outside this package's scope (spec §1).
type Conn interface {
	Send(frame []byte) error
}

// Broker forwards a notification frame to a remote processor/broker node
// when its target isn't locally connected. See broker.go and
// natsbroker.go for the two transports this repo ships.
type Broker interface {
	Forward(frame []byte, targetAuthenticatedID uint64) error
	Close() error
}

// FanOut tracks logged-in connections and delivers notification frames to
// them, forwarding via Broker when a target isn't local. A single mutex
// guards the map; spec §5 requires no finer-grained locking here.
type FanOut struct {
	mu     sync.Mutex
	conns  map[uint64][]Conn
	broker Broker

	// onBrokerDown is invoked (spec §4.7: "fatal: raise broker-down, tear
	// down node") when a forward to the broker fails. The transport/node
	// owns shutdown; this package only reports the condition.
	onBrokerDown func(error)
}

// NewFanOut returns an empty FanOut with no broker attached.
func NewFanOut() *FanOut {
	return &FanOut{conns: make(map[uint64][]Conn)}
}

// SetBroker attaches the node's broker link and the callback to invoke if
// it goes down. Call once, before serving requests.
func (f *FanOut) SetBroker(b Broker, onDown func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broker = b
	f.onBrokerDown = onDown
}

// Login registers c under id, making it a delivery target for
// notifications addressed to id (spec §4.6 step 9).
func (f *FanOut) Login(id uint64, c Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[id] = append(f.conns[id], c)
}

// Logout removes c's registration under id. A client disconnect calls this
// immediately; any notification already in flight to c is simply dropped
// the next time Send iterates an empty or absent slice (spec §5).
func (f *FanOut) Logout(id uint64, c Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.conns[id]
	for i, existing := range list {
		if existing == c {
			f.conns[id] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(f.conns[id]) == 0 {
		delete(f.conns, id)
	}
}

// Send enqueues frame on every connection registered for targetID. If none
// are registered locally and a broker is attached, the frame is forwarded
// with targetID as an 8-byte suffix (spec §4.7, §6 "Broker-forward
// envelope"). Delivery is fire-and-forget: send errors are swallowed for
// local connections (the transport already owns disconnect handling) but a
// broker forward failure is fatal per spec and invokes onBrokerDown.
func (f *FanOut) Send(targetID uint64, frame []byte) {
	f.mu.Lock()
	conns := append([]Conn(nil), f.conns[targetID]...)
	broker := f.broker
	onDown := f.onBrokerDown
	f.mu.Unlock()

	if len(conns) > 0 {
		for _, c := range conns {
			_ = c.Send(frame)
		}
		return
	}

	if broker == nil {
		return
	}
	if err := broker.Forward(frame, targetID); err != nil && onDown != nil {
		onDown(err)
	}
}
