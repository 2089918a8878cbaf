// Package dispatch implements the worker-side request lifecycle described
// in spec §4.6: decode, validate, transact, respond, fan out — the piece
// that wires wire/paramtree/codec/validate/registry/db/notify together
// into a runnable request loop. Transport framing (TCP/WebSocket accept
// loops) lives one layer up; this package only consumes already-extracted
// request frames and produces response frames.
package dispatch

// Response codes. 0-5 are the reserved range spec §6 fixes; handlers are
// free to return any value above 5 for domain-specific outcomes.
const (
	CodeSuccess            uint16 = 0
	CodeRetryLater         uint16 = 1
	CodeServerError        uint16 = 2
	CodeInvalidRequestType uint16 = 3
	CodeInvalidParameters  uint16 = 4
	CodeNoResponse         uint16 = 5
)
