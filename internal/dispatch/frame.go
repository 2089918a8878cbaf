package dispatch

import (
	"encoding/binary"

	"github.com/arkeindustries/requestcore/internal/wire"
)

// Request is one decoded request frame's body: category, method, and the
// still-serialized input payload (spec §6 "Wire format (request)").
type Request struct {
	Category uint8
	Method   uint8
	Payload  []byte
}

// ParseRequestFrame splits a frame body (the bytes following the u32
// length prefix a transport already stripped) into category, method, and
// payload. The length field covers everything that follows it — category,
// method, and payload — mirroring the response frame's length field
// covering code and payload; a body shorter than 2 bytes cannot carry even
// an empty category/method pair and is reported the same way a short
// payload is.
func ParseRequestFrame(body []byte) (Request, error) {
	if len(body) < 2 {
		return Request{}, wire.ErrShortBuffer
	}
	return Request{Category: body[0], Method: body[1], Payload: body[2:]}, nil
}

// EncodeRequestFrame builds a complete request frame, length-prefixed, in
// the format spec §6 "Wire format (request)" describes. Used by tests and
// by any in-process client exercising a node without a real transport.
func EncodeRequestFrame(category, method uint8, payload []byte) []byte {
	body := make([]byte, 2+len(payload))
	body[0] = category
	body[1] = method
	copy(body[2:], payload)

	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)
	return frame
}

// EncodeResponseFrame builds a complete response frame, length-prefixed,
// in the format spec §6 "Wire format (response)" describes: payload is
// only present when code == CodeSuccess.
func EncodeResponseFrame(code uint16, payload []byte) []byte {
	var body []byte
	if code == CodeSuccess {
		body = make([]byte, 2+len(payload))
		binary.LittleEndian.PutUint16(body, code)
		copy(body[2:], payload)
	} else {
		body = make([]byte, 2)
		binary.LittleEndian.PutUint16(body, code)
	}

	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)
	return frame
}
