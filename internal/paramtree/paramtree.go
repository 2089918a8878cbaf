// Package paramtree builds the ordered parameter tree described in spec
// §4.2 from a handler struct's field declarations. Declarations are made
// with the `rpc:"<in|out>,<index>"` struct tag; paramtree classifies each
// tagged field's Go type into a wire value-kind and, for nested objects and
// lists of objects, recurses to build the child tree.
package paramtree

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Direction is which half of a request/response a parameter belongs to.
type Direction int

const (
	DirIn Direction = iota
	DirOut
)

// Kind is a parameter's wire value-kind.
type Kind int

const (
	KindBool Kind = iota
	KindU8
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindU64
	KindI64
	KindF32
	KindF64
	KindString
	KindTimestamp
	KindEnum
	KindObject
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindI8:
		return "i8"
	case KindU16:
		return "u16"
	case KindI16:
		return "i16"
	case KindU32:
		return "u32"
	case KindI32:
		return "i32"
	case KindU64:
		return "u64"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	case KindEnum:
		return "enum"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Node is one parameter in the tree: a leaf scalar, an object with
// children, or a list with an element kind (and, for object elements, the
// element's own child tree).
type Node struct {
	Name           string
	Index          int // declared parameter index; negative values sort first
	FieldIndex     int // index into the owning struct's fields, for reflect access
	Kind           Kind
	Underlying     Kind // for KindEnum: the codec to use
	ElemKind       Kind // for KindList
	ElemUnderlying Kind // for KindList when ElemKind == KindEnum: the codec to use
	ElemType       reflect.Type
	Children       []*Node // for KindObject, or for KindList when ElemKind == KindObject
}

var timeType = reflect.TypeOf(time.Time{})

// Build enumerates the exported, rpc-tagged fields of t for direction dir,
// sorted ascending by declared index, and classifies each into a Node.
func Build(t reflect.Type, dir Direction) ([]*Node, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("paramtree: %s is not a struct", t)
	}

	var nodes []*Node
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup("rpc")
		if !ok {
			continue
		}
		fieldDir, index, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("paramtree: field %s: %w", f.Name, err)
		}
		if fieldDir != dir {
			continue
		}
		node, err := classify(f, i)
		if err != nil {
			return nil, fmt.Errorf("paramtree: field %s: %w", f.Name, err)
		}
		node.Index = index
		nodes = append(nodes, node)
	}

	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Index < nodes[j].Index })
	return nodes, nil
}

func parseTag(tag string) (Direction, int, error) {
	parts := strings.Split(tag, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed rpc tag %q", tag)
	}
	var dir Direction
	switch strings.TrimSpace(parts[0]) {
	case "in":
		dir = DirIn
	case "out":
		dir = DirOut
	default:
		return 0, 0, fmt.Errorf("unknown direction %q", parts[0])
	}
	idx, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("bad index %q: %w", parts[1], err)
	}
	return dir, idx, nil
}

func classify(f reflect.StructField, fieldIndex int) (*Node, error) {
	node := &Node{Name: f.Name, FieldIndex: fieldIndex}

	ft := f.Type
	switch {
	case ft == timeType:
		node.Kind = KindTimestamp
		return node, nil
	case ft.Kind() == reflect.Slice:
		node.Kind = KindList
		node.ElemType = ft.Elem()
		elemKind, elemUnderlying, children, err := classifyElem(ft.Elem())
		if err != nil {
			return nil, err
		}
		node.ElemKind = elemKind
		node.ElemUnderlying = elemUnderlying
		node.Children = children
		return node, nil
	case ft.Kind() == reflect.Ptr && ft.Elem().Kind() == reflect.Struct:
		node.Kind = KindObject
		children, err := Build(ft.Elem(), DirIn)
		if err != nil {
			return nil, err
		}
		inChildren := children
		outChildren, err := Build(ft.Elem(), DirOut)
		if err != nil {
			return nil, err
		}
		node.Children = mergeOrdered(inChildren, outChildren)
		return node, nil
	default:
		kind, underlying, err := scalarKind(ft)
		if err != nil {
			return nil, err
		}
		node.Kind = kind
		node.Underlying = underlying
		return node, nil
	}
}

// classifyElem classifies a list's element type: either a scalar/string
// codec, or (for struct/pointer-to-struct elements) the element's own
// parameter tree built from both directions merged in index order, the way
// a record type's fields are serialized regardless of which half of the
// call produced them (§4.2: "if the element is an object, recurse to build
// the element's own parameter tree").
func classifyElem(et reflect.Type) (Kind, Kind, []*Node, error) {
	if et == timeType {
		return KindTimestamp, 0, nil, nil
	}
	structType := et
	if et.Kind() == reflect.Ptr {
		structType = et.Elem()
	}
	if structType.Kind() == reflect.Struct && structType != timeType {
		inChildren, err := Build(structType, DirIn)
		if err != nil {
			return 0, 0, nil, err
		}
		outChildren, err := Build(structType, DirOut)
		if err != nil {
			return 0, 0, nil, err
		}
		return KindObject, 0, mergeOrdered(inChildren, outChildren), nil
	}
	kind, underlying, err := scalarKind(et)
	return kind, underlying, nil, err
}

// mergeOrdered combines a struct's in- and out-tagged fields (a record type
// used as a list element only ever uses one direction in practice, but we
// merge defensively) into one index-ordered slice.
func mergeOrdered(a, b []*Node) []*Node {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return b
	}
	out := append(append([]*Node{}, a...), b...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func scalarKind(t reflect.Type) (Kind, Kind, error) {
	switch t.Kind() {
	case reflect.Bool:
		return KindBool, 0, nil
	case reflect.Uint8:
		return enumOrBase(t, reflect.TypeOf(uint8(0)), KindU8), KindU8, nil
	case reflect.Int8:
		return enumOrBase(t, reflect.TypeOf(int8(0)), KindI8), KindI8, nil
	case reflect.Uint16:
		return enumOrBase(t, reflect.TypeOf(uint16(0)), KindU16), KindU16, nil
	case reflect.Int16:
		return enumOrBase(t, reflect.TypeOf(int16(0)), KindI16), KindI16, nil
	case reflect.Uint32:
		return enumOrBase(t, reflect.TypeOf(uint32(0)), KindU32), KindU32, nil
	case reflect.Int32:
		return enumOrBase(t, reflect.TypeOf(int32(0)), KindI32), KindI32, nil
	case reflect.Uint64:
		return enumOrBase(t, reflect.TypeOf(uint64(0)), KindU64), KindU64, nil
	case reflect.Int64:
		return enumOrBase(t, reflect.TypeOf(int64(0)), KindI64), KindI64, nil
	case reflect.Float32:
		return KindF32, 0, nil
	case reflect.Float64:
		return KindF64, 0, nil
	case reflect.String:
		return KindString, 0, nil
	default:
		return 0, 0, fmt.Errorf("unsupported value kind for type %s", t)
	}
}

// enumOrBase reports KindEnum when t is a named type distinct from Go's
// predeclared base type, e.g. `type Weapon uint8` — spec §3: "enum nodes
// serialize as their underlying integer kind". The caller always passes
// baseKind through as the second return value; it is only meaningful when
// the first return value is KindEnum.
func enumOrBase(t, base reflect.Type, baseKind Kind) Kind {
	if t == base {
		return baseKind
	}
	return KindEnum
}

// UnderlyingKind returns n's wire codec kind: n.Kind for scalars, or the
// attached Underlying kind for KindEnum.
func (n *Node) UnderlyingKind() Kind {
	if n.Kind == KindEnum {
		return n.Underlying
	}
	return n.Kind
}
