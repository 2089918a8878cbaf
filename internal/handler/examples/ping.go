// Package examples implements the literal end-to-end scenarios from spec
// §8 as real handler types, grounded on the Handler contract spec §6
// defines and driven by internal/paramtree + internal/codec the same way
// any game-rules handler would be. They exist to give the codec and
// dispatch loop something concrete to register and exercise in tests.
package examples

import (
	"reflect"

	"github.com/arkeindustries/requestcore/internal/codec"
	"github.com/arkeindustries/requestcore/internal/paramtree"
	"github.com/arkeindustries/requestcore/internal/registry"
	"github.com/arkeindustries/requestcore/internal/wire"
)

// base is embedded by every example handler for the registry.Base
// bookkeeping (authenticated id, notification outbox).
type base struct {
	registry.Base
}

// driver is shared across example handlers so the parameter trees they
// were built from at package init are reused rather than rebuilt by
// reflection on every request.
var driver = codec.NewDriver()

func buildTree(v interface{}, dir paramtree.Direction) []*paramtree.Node {
	nodes, err := paramtree.Build(reflect.TypeOf(v).Elem(), dir)
	if err != nil {
		panic(err)
	}
	return nodes
}

// PingHandler is spec §8 scenario 1: handler (1,1), no parameters, always
// succeeds. The client sends 00 00 00 02 01 01 (the length covers category
// and method); the server returns 00 00 00 02 00 00.
type PingHandler struct {
	base
}

var pingInNodes = buildTree(&PingHandler{}, paramtree.DirIn)
var pingOutNodes = buildTree(&PingHandler{}, paramtree.DirOut)

func (h *PingHandler) Deserialize(r *wire.Reader) error {
	return driver.Deserialize(pingInNodes, reflect.ValueOf(h).Elem(), r)
}

func (h *PingHandler) IsValid() uint16 { return 0 }

func (h *PingHandler) Process(authenticatedID uint64) uint16 {
	return 0
}

func (h *PingHandler) Serialize(w *wire.Writer) error {
	return driver.Serialize(pingOutNodes, reflect.ValueOf(h).Elem(), w)
}

// RegisterPing adds the ping handler at (1,1) to reg as an unauthenticated
// handler, matching spec §8 scenario 1's literal bytes.
func RegisterPing(reg *registry.Registry) {
	reg.RegisterUnauthenticated(1, 1, func() registry.Handler { return &PingHandler{} })
}
