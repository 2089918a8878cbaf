package examples

import (
	"testing"
	"time"

	"github.com/arkeindustries/requestcore/internal/dispatch"
	"github.com/arkeindustries/requestcore/internal/identity"
	"github.com/arkeindustries/requestcore/internal/registry"
	"github.com/arkeindustries/requestcore/internal/wire"
	"github.com/stretchr/testify/require"
)

func registryWithPagedUsers(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(1)
	RegisterPagedUsers(reg)
	return reg
}

// TestPingWireBytes checks the ping request and response frames byte for
// byte through dispatch.EncodeRequestFrame / a PingHandler instance. The
// request's length prefix is 2 because it covers category and method.
func TestPingWireBytes(t *testing.T) {
	req := dispatch.EncodeRequestFrame(1, 1, nil)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x02, 0x01, 0x01}, req)

	h := &PingHandler{}
	require.NoError(t, h.Deserialize(wire.NewReader(nil)))
	require.Equal(t, uint16(0), h.IsValid())
	require.Equal(t, uint16(0), h.Process(0))

	w := wire.NewWriter()
	require.NoError(t, h.Serialize(w))
	resp := dispatch.EncodeResponseFrame(0, w.Bytes())
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x00}, resp)
}

// TestEchoWireBytes checks spec §8 scenario 2's round trip. (The literal
// length prefix spec §8 writes for this example, 0000000B, does not match
// the byte count of its own listed body and is treated as a typo in the
// example rather than a contract — see DESIGN.md.) The string's u16 length
// prefix is little-endian like every other scalar, so it is the bytes 02 00.
func TestEchoWireBytes(t *testing.T) {
	h := &EchoHandler{}
	w := wire.NewWriter()
	w.WriteString("Hi")
	require.NoError(t, h.Deserialize(wire.NewReader(w.Bytes())))
	require.Equal(t, "Hi", h.Msg)
	require.Equal(t, uint16(0), h.Process(0))
	require.Equal(t, "Hi", h.Echoed)

	out := wire.NewWriter()
	require.NoError(t, h.Serialize(out))
	resp := dispatch.EncodeResponseFrame(0, out.Bytes())

	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x02, 0x00, 'H', 'i'}, resp)
}

// TestPagedUsersReturnsLowestByID checks spec §8 scenario 3: skip=0,
// take=2, order by id ascending over 5 records returns the 2 lowest ids.
func TestPagedUsersReturnsLowestByID(t *testing.T) {
	reg := registryWithPagedUsers(t)
	h, ok := reg.Lookup(3, 1, 0, 0)
	require.True(t, ok)

	in := wire.NewWriter()
	in.WriteI32(0)    // skip
	in.WriteI32(2)    // take
	in.WriteString("id")
	in.WriteBool(true) // ascending

	require.NoError(t, h.Deserialize(wire.NewReader(in.Bytes())))
	require.Equal(t, uint16(0), h.IsValid())
	require.Equal(t, uint16(0), h.Process(0))

	out := wire.NewWriter()
	require.NoError(t, h.Serialize(out))

	r := wire.NewReader(out.Bytes())
	count, err := r.ReadCount()
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	id0, _ := r.ReadU64()
	name0, _ := r.ReadString()
	id1, _ := r.ReadU64()
	name1, _ := r.ReadString()

	require.EqualValues(t, 1, id0)
	require.Equal(t, "alice", name0)
	require.EqualValues(t, 2, id1)
	require.Equal(t, "bob", name1)
}

func TestPagedUsersUnregisteredSortFieldIsInvalidParameters(t *testing.T) {
	reg := registryWithPagedUsers(t)
	h, ok := reg.Lookup(3, 1, 0, 0)
	require.True(t, ok)

	in := wire.NewWriter()
	in.WriteI32(0)
	in.WriteI32(2)
	in.WriteString("not_a_field")
	in.WriteBool(true)

	require.NoError(t, h.Deserialize(wire.NewReader(in.Bytes())))
	require.Equal(t, dispatch.CodeInvalidParameters, h.IsValid())
}

func TestLoginSetsAuthenticatedIDOnValidToken(t *testing.T) {
	verifier := identity.NewVerifier([]byte("test-key"))
	token, err := verifier.NewToken(42, time.Minute)
	require.NoError(t, err)

	h := &LoginHandler{verifier: verifier}
	w := wire.NewWriter()
	w.WriteString(token)
	require.NoError(t, h.Deserialize(wire.NewReader(w.Bytes())))

	require.Equal(t, uint16(0), h.Process(0))
	require.EqualValues(t, 42, h.AuthenticatedID())
}

func TestLoginRejectsInvalidToken(t *testing.T) {
	verifier := identity.NewVerifier([]byte("test-key"))
	h := &LoginHandler{verifier: verifier}
	w := wire.NewWriter()
	w.WriteString("not-a-token")
	require.NoError(t, h.Deserialize(wire.NewReader(w.Bytes())))

	require.Equal(t, CodeInvalidCredentials, h.Process(0))
	require.EqualValues(t, 0, h.AuthenticatedID())
}
