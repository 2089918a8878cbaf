// Package pagedlist implements the paged-list handler specialization
// described in spec §4.4: four synthetic input fields at fixed negative
// indices (skip, take, order_by_field, order_by_ascending) so they sort
// before any subclass-defined fields, and one output field (the result
// page) at index -1.
//
// Spec §9's Design Notes flag the source's runtime field-name reflection
// for sorting as something a systems language should replace with "a
// static map from field name to comparator"; Handler does exactly that —
// Comparators is supplied by the concrete registration, and looking up an
// unregistered name is reported as invalid_parameters (spec §9: "yields
// invalid_parameters") rather than attempted.
package pagedlist

import (
	"reflect"
	"sort"
	"sync"

	"github.com/arkeindustries/requestcore/internal/codec"
	"github.com/arkeindustries/requestcore/internal/dispatch"
	"github.com/arkeindustries/requestcore/internal/paramtree"
	"github.com/arkeindustries/requestcore/internal/registry"
	"github.com/arkeindustries/requestcore/internal/validate"
	"github.com/arkeindustries/requestcore/internal/wire"
)

// Comparator orders two source records for a specific field name.
type Comparator[TSource any] func(a, b TSource) bool

// SourceFunc produces the queryable source sequence a page is drawn from,
// for the given authenticated id. It is called once per request, inside
// the handler's transaction, so a real implementation backed by a
// database query sees a consistent snapshot.
type SourceFunc[TSource any] func(authenticatedID uint64) []TSource

// Handler is a generic paged-list handler, registered directly as the
// handler instance (see examples.RegisterPagedUsers). Its parameter trees
// are built from Handler's own fields only, so fields declared on a type
// that wraps or embeds it are not deserialized or serialized by it.
type Handler[TSource any, TEntry any] struct {
	registry.Base

	Skip             int32 `rpc:"in,-4"`
	Take             int32 `rpc:"in,-3"`
	OrderByField     string `rpc:"in,-2"`
	OrderByAscending bool   `rpc:"in,-1"`

	List []TEntry `rpc:"out,-1"`

	source      SourceFunc[TSource]
	comparators map[string]Comparator[TSource]

	inNodes   []*paramtree.Node
	outNodes  []*paramtree.Node
	driver    *codec.Driver
	validator *validate.Validator
}

// New builds a paged-list handler drawing from source, sorted by one of
// the named comparators. driver is typically shared across a node's
// handlers (codec.NewDriver()).
func New[TSource any, TEntry any](driver *codec.Driver, source SourceFunc[TSource], comparators map[string]Comparator[TSource]) *Handler[TSource, TEntry] {
	h := &Handler[TSource, TEntry]{source: source, comparators: comparators, driver: driver}

	t := reflect.TypeOf(*h)
	inNodes, err := paramtree.Build(t, paramtree.DirIn)
	if err != nil {
		panic(err)
	}
	outNodes, err := paramtree.Build(t, paramtree.DirOut)
	if err != nil {
		panic(err)
	}
	h.inNodes, h.outNodes = inNodes, outNodes
	h.validator = newValidator(t)
	return h
}

// newValidator builds the declarative skip/take constraints spec §4.4's
// paged-list handler enforces before Process runs (spec §4.5's
// Validator/Constraint component, applied here to the two fields every
// paged-list handler shares).
func newValidator(t reflect.Type) *validate.Validator {
	skipField, _ := t.FieldByName("Skip")
	takeField, _ := t.FieldByName("Take")
	return &validate.Validator{
		Fields: []validate.FieldConstraints{
			{FieldIndex: skipField.Index[0], Checks: []validate.Constraint{
				validate.AtLeast{Min: 0, FailureCode: dispatch.CodeInvalidParameters},
			}},
			{FieldIndex: takeField.Index[0], Checks: []validate.Constraint{
				validate.AtLeast{Min: 0, FailureCode: dispatch.CodeInvalidParameters},
			}},
		},
	}
}

func (h *Handler[TSource, TEntry]) Deserialize(r *wire.Reader) error {
	return h.driver.Deserialize(h.inNodes, reflect.ValueOf(h).Elem(), r)
}

// IsValid enforces the non-negativity of skip/take through the declarative
// validator built in New, then that the requested field is actually
// registered (spec §9's redesign of the sort step — a static map lookup
// rather than a per-field Constraint, since it depends on the instance's
// own comparators map).
func (h *Handler[TSource, TEntry]) IsValid() uint16 {
	if code := h.validator.Validate(reflect.ValueOf(h).Elem()); code != dispatch.CodeSuccess {
		return code
	}
	if h.OrderByField == "" {
		return dispatch.CodeInvalidParameters
	}
	if _, ok := h.comparators[h.OrderByField]; !ok {
		return dispatch.CodeInvalidParameters
	}
	return dispatch.CodeSuccess
}

// Process runs the page query: sort the source sequence by the requested
// field (stable, so ties keep source order within a single call per spec
// §4.4), apply skip/take, and bind each surviving record into a fresh
// TEntry by field-name matching (spec §4.3 "Binding").
func (h *Handler[TSource, TEntry]) Process(authenticatedID uint64) uint16 {
	records := h.source(authenticatedID)
	less := h.comparators[h.OrderByField]

	sort.SliceStable(records, func(i, j int) bool {
		if h.OrderByAscending {
			return less(records[i], records[j])
		}
		return less(records[j], records[i])
	})

	start := int(h.Skip)
	if start > len(records) {
		start = len(records)
	}
	end := start + int(h.Take)
	if end > len(records) {
		end = len(records)
	}
	page := records[start:end]

	h.List = make([]TEntry, len(page))
	for i, rec := range page {
		codec.Bind(entryNodes[TEntry](), reflect.ValueOf(&h.List[i]).Elem(), reflect.ValueOf(rec))
	}
	return dispatch.CodeSuccess
}

func (h *Handler[TSource, TEntry]) Serialize(w *wire.Writer) error {
	return h.driver.Serialize(h.outNodes, reflect.ValueOf(h).Elem(), w)
}

// entryNodes builds (once per TEntry type) the field-name-matching target
// tree Bind walks to populate one page entry. Only TEntry's out-tagged
// fields are in this tree, so in-tagged entry fields are not bound.
var (
	entryNodeCacheMu sync.Mutex
	entryNodeCache   = map[reflect.Type][]*paramtree.Node{}
)

func entryNodes[TEntry any]() []*paramtree.Node {
	t := reflect.TypeOf(*new(TEntry))

	entryNodeCacheMu.Lock()
	defer entryNodeCacheMu.Unlock()

	if nodes, ok := entryNodeCache[t]; ok {
		return nodes
	}
	nodes, err := paramtree.Build(t, paramtree.DirOut)
	if err != nil {
		panic(err)
	}
	entryNodeCache[t] = nodes
	return nodes
}

var _ registry.Handler = (*Handler[struct{}, struct{}])(nil)
