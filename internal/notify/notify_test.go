package notify

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
}

func (c *recordingConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("send failed")
	}
	c.frames = append(c.frames, frame)
	return nil
}

type stubBroker struct {
	mu       sync.Mutex
	forwards []uint64
	err      error
}

func (b *stubBroker) Forward(frame []byte, targetAuthenticatedID uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwards = append(b.forwards, targetAuthenticatedID)
	return b.err
}

func (b *stubBroker) Close() error { return nil }

func TestBuildFrameLayout(t *testing.T) {
	frame := BuildFrame(0x0102, []byte{0xAA, 0xBB})
	require.Equal(t, []byte{0, 0, 0, 4, 0x01, 0x02, 0xAA, 0xBB}, frame)
}

func TestSendDeliversToAllConnectionsRegisteredForTarget(t *testing.T) {
	f := NewFanOut()
	c1 := &recordingConn{}
	c2 := &recordingConn{}
	f.Login(1, c1)
	f.Login(1, c2)

	f.Send(1, []byte("hi"))

	require.Equal(t, [][]byte{[]byte("hi")}, c1.frames)
	require.Equal(t, [][]byte{[]byte("hi")}, c2.frames)
}

func TestLogoutRemovesOnlyMatchingConnection(t *testing.T) {
	f := NewFanOut()
	c1 := &recordingConn{}
	c2 := &recordingConn{}
	f.Login(1, c1)
	f.Login(1, c2)

	f.Logout(1, c1)
	f.Send(1, []byte("hi"))

	require.Empty(t, c1.frames)
	require.Equal(t, [][]byte{[]byte("hi")}, c2.frames)
}

func TestSendWithNoLocalConnectionsAndNoBrokerIsNoop(t *testing.T) {
	f := NewFanOut()
	require.NotPanics(t, func() { f.Send(99, []byte("x")) })
}

func TestSendForwardsToBrokerWhenTargetNotLocal(t *testing.T) {
	f := NewFanOut()
	broker := &stubBroker{}
	f.SetBroker(broker, nil)

	f.Send(5, []byte("x"))

	require.Equal(t, []uint64{5}, broker.forwards)
}

func TestSendPrefersLocalConnectionOverBroker(t *testing.T) {
	f := NewFanOut()
	broker := &stubBroker{}
	f.SetBroker(broker, nil)
	c := &recordingConn{}
	f.Login(5, c)

	f.Send(5, []byte("x"))

	require.Empty(t, broker.forwards)
	require.Len(t, c.frames, 1)
}

func TestSendInvokesOnBrokerDownWhenForwardFails(t *testing.T) {
	f := NewFanOut()
	broker := &stubBroker{err: errors.New("link down")}
	var gotErr error
	f.SetBroker(broker, func(err error) { gotErr = err })

	f.Send(5, []byte("x"))

	require.Error(t, gotErr)
}

func TestSendSwallowsLocalConnectionErrors(t *testing.T) {
	f := NewFanOut()
	c := &recordingConn{fail: true}
	f.Login(1, c)

	require.NotPanics(t, func() { f.Send(1, []byte("x")) })
}
