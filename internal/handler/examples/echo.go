package examples

import (
	"reflect"

	"github.com/arkeindustries/requestcore/internal/paramtree"
	"github.com/arkeindustries/requestcore/internal/registry"
	"github.com/arkeindustries/requestcore/internal/wire"
)

// EchoHandler is spec §8 scenario 2: handler (2,1) takes input msg:string
// and returns output msg:string. Input "Hi" is the request frame
// 00 00 00 06 02 01 02 00 48 69; the response frame is
// 00 00 00 06 00 00 02 00 48 69 (the u16 string length is little-endian).
type EchoHandler struct {
	base

	Msg     string `rpc:"in,0"`
	Echoed  string `rpc:"out,0"`
}

var echoInNodes = buildTree(&EchoHandler{}, paramtree.DirIn)
var echoOutNodes = buildTree(&EchoHandler{}, paramtree.DirOut)

func (h *EchoHandler) Deserialize(r *wire.Reader) error {
	return driver.Deserialize(echoInNodes, reflect.ValueOf(h).Elem(), r)
}

func (h *EchoHandler) IsValid() uint16 { return 0 }

func (h *EchoHandler) Process(authenticatedID uint64) uint16 {
	h.Echoed = h.Msg
	return 0
}

func (h *EchoHandler) Serialize(w *wire.Writer) error {
	return driver.Serialize(echoOutNodes, reflect.ValueOf(h).Elem(), w)
}

// RegisterEcho adds the echo handler at (2,1) to reg as unauthenticated.
func RegisterEcho(reg *registry.Registry) {
	reg.RegisterUnauthenticated(2, 1, func() registry.Handler { return &EchoHandler{} })
}
