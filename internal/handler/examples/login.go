package examples

import (
	"reflect"

	"github.com/arkeindustries/requestcore/internal/identity"
	"github.com/arkeindustries/requestcore/internal/paramtree"
	"github.com/arkeindustries/requestcore/internal/registry"
	"github.com/arkeindustries/requestcore/internal/wire"
)

// LoginHandler is the unauthenticated login handler SPEC_FULL.md's
// supplemented-features section describes: it validates a bearer token
// via internal/identity and, on success, mutates its own authenticated id
// field so dispatch step 9 (spec §4.6) registers the connection as
// logged in.
type LoginHandler struct {
	base

	Token string `rpc:"in,0"`

	verifier *identity.Verifier
}

var loginInNodes = buildTree(&LoginHandler{}, paramtree.DirIn)
var loginOutNodes = buildTree(&LoginHandler{}, paramtree.DirOut)

// Domain response codes above the reserved 0-5 range (spec §6).
const CodeInvalidCredentials uint16 = 100

func (h *LoginHandler) Deserialize(r *wire.Reader) error {
	return driver.Deserialize(loginInNodes, reflect.ValueOf(h).Elem(), r)
}

func (h *LoginHandler) IsValid() uint16 { return 0 }

func (h *LoginHandler) Process(authenticatedID uint64) uint16 {
	id, err := h.verifier.AuthenticatedID(h.Token)
	if err != nil {
		return CodeInvalidCredentials
	}
	h.SetAuthenticatedID(id)
	return 0
}

func (h *LoginHandler) Serialize(w *wire.Writer) error {
	return driver.Serialize(loginOutNodes, reflect.ValueOf(h).Elem(), w)
}

// LogoutHandler is the matching authenticated handler: it always succeeds
// and zeroes authenticated id, the 4.6-step-9 logout transition.
type LogoutHandler struct {
	base
}

var logoutInNodes = buildTree(&LogoutHandler{}, paramtree.DirIn)
var logoutOutNodes = buildTree(&LogoutHandler{}, paramtree.DirOut)

func (h *LogoutHandler) Deserialize(r *wire.Reader) error {
	return driver.Deserialize(logoutInNodes, reflect.ValueOf(h).Elem(), r)
}

func (h *LogoutHandler) IsValid() uint16 { return 0 }

func (h *LogoutHandler) Process(authenticatedID uint64) uint16 {
	h.SetAuthenticatedID(0)
	return 0
}

func (h *LogoutHandler) Serialize(w *wire.Writer) error {
	return driver.Serialize(logoutOutNodes, reflect.ValueOf(h).Elem(), w)
}

// RegisterLogin adds the login handler at (4,1) (unauthenticated) and the
// logout handler at (4,2) (authenticated) to reg.
func RegisterLogin(reg *registry.Registry, verifier *identity.Verifier) {
	reg.RegisterUnauthenticated(4, 1, func() registry.Handler {
		return &LoginHandler{verifier: verifier}
	})
	reg.RegisterAuthenticated(4, 2, func() registry.Handler {
		return &LogoutHandler{}
	})
}
