// Package codec walks a parameter tree (internal/paramtree) against a
// handler instance's reflect.Value to serialize and deserialize wire
// payloads (spec §4.3), and implements field-name-matching binding from a
// plain data record onto a handler's output fields (spec §4.3 "Binding",
// §9 supplemented behavior).
package codec

import (
	"fmt"
	"reflect"
	"time"

	"github.com/arkeindustries/requestcore/internal/paramtree"
	"github.com/arkeindustries/requestcore/internal/wire"
	"github.com/arkeindustries/requestcore/pkg/log"
)

// Driver serializes/deserializes parameter trees against a fixed epoch.
type Driver struct {
	Epoch time.Time
}

// NewDriver returns a Driver using wire.DefaultEpoch.
func NewDriver() *Driver {
	return &Driver{Epoch: wire.DefaultEpoch}
}

// Serialize emits v's fields described by nodes, in order, to w. List
// fields are cleared on v after being written (spec §4.3: "the list MUST
// be cleared on the handler instance so the next reuse starts empty").
func (d *Driver) Serialize(nodes []*paramtree.Node, v reflect.Value, w *wire.Writer) error {
	for _, n := range nodes {
		if err := d.serializeNode(n, v.Field(n.FieldIndex), w); err != nil {
			return fmt.Errorf("serialize %s: %w", n.Name, err)
		}
	}
	return nil
}

// Deserialize populates v's fields described by nodes, in order, from r.
// Every list encountered is allocated fresh (overwrite semantics; see
// SPEC_FULL.md's resolution of spec.md's open question on this point).
func (d *Driver) Deserialize(nodes []*paramtree.Node, v reflect.Value, r *wire.Reader) error {
	for _, n := range nodes {
		if err := d.deserializeNode(n, v.Field(n.FieldIndex), r); err != nil {
			return fmt.Errorf("deserialize %s: %w", n.Name, err)
		}
	}
	return nil
}

func (d *Driver) serializeNode(n *paramtree.Node, field reflect.Value, w *wire.Writer) error {
	switch n.Kind {
	case paramtree.KindBool:
		w.WriteBool(field.Bool())
	case paramtree.KindString:
		w.WriteString(field.String())
	case paramtree.KindTimestamp:
		w.WriteTimestamp(field.Interface().(time.Time), d.Epoch)
	case paramtree.KindF32:
		w.WriteF32(float32(field.Float()))
	case paramtree.KindF64:
		w.WriteF64(field.Float())
	case paramtree.KindEnum:
		writeIntKind(w, n.Underlying, field)
	case paramtree.KindU8, paramtree.KindU16, paramtree.KindU32, paramtree.KindU64,
		paramtree.KindI8, paramtree.KindI16, paramtree.KindI32, paramtree.KindI64:
		writeIntKind(w, n.Kind, field)
	case paramtree.KindObject:
		if field.IsNil() {
			return fmt.Errorf("nil object field (handler must pre-construct nested objects)")
		}
		return d.Serialize(n.Children, field.Elem(), w)
	case paramtree.KindList:
		if err := d.serializeList(n, field, w); err != nil {
			return err
		}
		field.Set(reflect.Zero(field.Type()))
	default:
		return fmt.Errorf("unhandled kind %s", n.Kind)
	}
	return nil
}

func (d *Driver) serializeList(n *paramtree.Node, field reflect.Value, w *wire.Writer) error {
	count := field.Len()
	w.WriteCount(count)
	for i := 0; i < count; i++ {
		elem := field.Index(i)
		if n.ElemKind == paramtree.KindObject {
			target := elem
			if target.Kind() == reflect.Ptr {
				if target.IsNil() {
					return fmt.Errorf("nil list element at index %d", i)
				}
				target = target.Elem()
			}
			if err := d.Serialize(n.Children, target, w); err != nil {
				return err
			}
			continue
		}
		if err := d.serializeScalarValue(n, elem, w); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) serializeScalarValue(n *paramtree.Node, v reflect.Value, w *wire.Writer) error {
	switch n.ElemKind {
	case paramtree.KindBool:
		w.WriteBool(v.Bool())
	case paramtree.KindString:
		w.WriteString(v.String())
	case paramtree.KindTimestamp:
		w.WriteTimestamp(v.Interface().(time.Time), d.Epoch)
	case paramtree.KindF32:
		w.WriteF32(float32(v.Float()))
	case paramtree.KindF64:
		w.WriteF64(v.Float())
	case paramtree.KindEnum:
		writeIntKind(w, n.ElemUnderlying, v)
	case paramtree.KindU8, paramtree.KindU16, paramtree.KindU32, paramtree.KindU64,
		paramtree.KindI8, paramtree.KindI16, paramtree.KindI32, paramtree.KindI64:
		writeIntKind(w, n.ElemKind, v)
	default:
		return fmt.Errorf("unhandled scalar list element kind %s", n.ElemKind)
	}
	return nil
}

func writeIntKind(w *wire.Writer, k paramtree.Kind, v reflect.Value) {
	switch k {
	case paramtree.KindU8:
		w.WriteU8(uint8(v.Uint()))
	case paramtree.KindI8:
		w.WriteI8(int8(v.Int()))
	case paramtree.KindU16:
		w.WriteU16(uint16(v.Uint()))
	case paramtree.KindI16:
		w.WriteI16(int16(v.Int()))
	case paramtree.KindU32:
		w.WriteU32(uint32(v.Uint()))
	case paramtree.KindI32:
		w.WriteI32(int32(v.Int()))
	case paramtree.KindU64:
		w.WriteU64(v.Uint())
	case paramtree.KindI64:
		w.WriteI64(v.Int())
	}
}

func (d *Driver) deserializeNode(n *paramtree.Node, field reflect.Value, r *wire.Reader) error {
	switch n.Kind {
	case paramtree.KindBool:
		v, err := r.ReadBool()
		if err != nil {
			return err
		}
		field.SetBool(v)
	case paramtree.KindString:
		v, err := r.ReadString()
		if err != nil {
			return err
		}
		field.SetString(v)
	case paramtree.KindTimestamp:
		v, err := r.ReadTimestamp(d.Epoch)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(v))
	case paramtree.KindF32:
		v, err := r.ReadF32()
		if err != nil {
			return err
		}
		field.SetFloat(float64(v))
	case paramtree.KindF64:
		v, err := r.ReadF64()
		if err != nil {
			return err
		}
		field.SetFloat(v)
	case paramtree.KindEnum:
		return readIntKind(r, n.Underlying, field)
	case paramtree.KindU8, paramtree.KindU16, paramtree.KindU32, paramtree.KindU64,
		paramtree.KindI8, paramtree.KindI16, paramtree.KindI32, paramtree.KindI64:
		return readIntKind(r, n.Kind, field)
	case paramtree.KindObject:
		if field.IsNil() {
			return fmt.Errorf("nil object field (handler must pre-construct nested objects)")
		}
		return d.Deserialize(n.Children, field.Elem(), r)
	case paramtree.KindList:
		return d.deserializeList(n, field, r)
	default:
		return fmt.Errorf("unhandled kind %s", n.Kind)
	}
	return nil
}

func (d *Driver) deserializeList(n *paramtree.Node, field reflect.Value, r *wire.Reader) error {
	count, err := r.ReadCount()
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(field.Type(), int(count), int(count))
	for i := 0; i < int(count); i++ {
		elem := out.Index(i)
		if n.ElemKind == paramtree.KindObject {
			target := elem
			if target.Kind() == reflect.Ptr {
				target.Set(reflect.New(target.Type().Elem()))
				target = target.Elem()
			}
			if err := d.Deserialize(n.Children, target, r); err != nil {
				return err
			}
			continue
		}
		if err := d.deserializeScalarValue(n, elem, r); err != nil {
			return err
		}
	}
	field.Set(out)
	return nil
}

func (d *Driver) deserializeScalarValue(n *paramtree.Node, v reflect.Value, r *wire.Reader) error {
	switch n.ElemKind {
	case paramtree.KindBool:
		b, err := r.ReadBool()
		if err != nil {
			return err
		}
		v.SetBool(b)
	case paramtree.KindString:
		s, err := r.ReadString()
		if err != nil {
			return err
		}
		v.SetString(s)
	case paramtree.KindTimestamp:
		t, err := r.ReadTimestamp(d.Epoch)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t))
	case paramtree.KindF32:
		f, err := r.ReadF32()
		if err != nil {
			return err
		}
		v.SetFloat(float64(f))
	case paramtree.KindF64:
		f, err := r.ReadF64()
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case paramtree.KindEnum:
		return readIntKind(r, n.ElemUnderlying, v)
	case paramtree.KindU8, paramtree.KindU16, paramtree.KindU32, paramtree.KindU64,
		paramtree.KindI8, paramtree.KindI16, paramtree.KindI32, paramtree.KindI64:
		return readIntKind(r, n.ElemKind, v)
	default:
		return fmt.Errorf("unhandled scalar list element kind %s", n.ElemKind)
	}
	return nil
}

func readIntKind(r *wire.Reader, k paramtree.Kind, field reflect.Value) error {
	switch k {
	case paramtree.KindU8:
		v, err := r.ReadU8()
		if err != nil {
			return err
		}
		field.SetUint(uint64(v))
	case paramtree.KindI8:
		v, err := r.ReadI8()
		if err != nil {
			return err
		}
		field.SetInt(int64(v))
	case paramtree.KindU16:
		v, err := r.ReadU16()
		if err != nil {
			return err
		}
		field.SetUint(uint64(v))
	case paramtree.KindI16:
		v, err := r.ReadI16()
		if err != nil {
			return err
		}
		field.SetInt(int64(v))
	case paramtree.KindU32:
		v, err := r.ReadU32()
		if err != nil {
			return err
		}
		field.SetUint(uint64(v))
	case paramtree.KindI32:
		v, err := r.ReadI32()
		if err != nil {
			return err
		}
		field.SetInt(int64(v))
	case paramtree.KindU64:
		v, err := r.ReadU64()
		if err != nil {
			return err
		}
		field.SetUint(v)
	case paramtree.KindI64:
		v, err := r.ReadI64()
		if err != nil {
			return err
		}
		field.SetInt(v)
	}
	return nil
}

// Bind copies src's fields onto dst's nodes by matching field names,
// coercing numeric kinds as needed. Source fields with no matching
// destination node are silently skipped, per spec §9; that skip is logged
// at debug level. Destination nodes with no matching source field are left
// unchanged and are logged at debug level too. Bind also applies within
// list elements (used by the paged-list handler to build each output entry
// from a source record).
func Bind(nodes []*paramtree.Node, dst reflect.Value, src reflect.Value) {
	if src.Kind() == reflect.Ptr {
		src = src.Elem()
	}
	for i := 0; i < src.NumField(); i++ {
		name := src.Type().Field(i).Name
		matched := false
		for _, n := range nodes {
			if n.Name == name {
				matched = true
				break
			}
		}
		if !matched {
			log.Debugf("codec: bind: source field %q has no destination node, dropping", name)
		}
	}
	for _, n := range nodes {
		srcField := src.FieldByName(n.Name)
		if !srcField.IsValid() {
			log.Debugf("codec: bind: source record has no field %q, dropping", n.Name)
			continue
		}
		dstField := dst.Field(n.FieldIndex)
		if n.Kind == paramtree.KindObject {
			if dstField.IsNil() {
				dstField.Set(reflect.New(dstField.Type().Elem()))
			}
			Bind(n.Children, dstField.Elem(), srcField)
			continue
		}
		if n.Kind == paramtree.KindList && n.ElemKind == paramtree.KindObject {
			out := reflect.MakeSlice(dstField.Type(), srcField.Len(), srcField.Len())
			for i := 0; i < srcField.Len(); i++ {
				elem := out.Index(i)
				target := elem
				if target.Kind() == reflect.Ptr {
					target.Set(reflect.New(target.Type().Elem()))
					target = target.Elem()
				}
				Bind(n.Children, target, srcField.Index(i))
			}
			dstField.Set(out)
			continue
		}
		setCoerced(dstField, srcField)
	}
}

// setCoerced assigns src into dst, converting between compatible numeric
// kinds (e.g. a source int64 field into a destination uint32 parameter).
func setCoerced(dst, src reflect.Value) {
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return
	}
	if src.Type().ConvertibleTo(dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return
	}
	log.Debugf("codec: bind: field %s type %s not coercible to %s, dropping", dst.Type(), src.Type(), dst.Type())
}
