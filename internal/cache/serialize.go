package cache

import (
	"errors"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// digestThreshold is the serialized length above which keys are hashed.
const digestThreshold = 512

var (
	timeType     = reflect.TypeOf(time.Time{})
	locationType = reflect.TypeOf(time.Location{})

	errCycle = errors.New("cyclic value")
)

// identity is an address qualified by type so that a struct and its first
// field, which share an address, are not conflated.
type identity struct {
	typ  reflect.Type
	addr uintptr
}

// identityTable assigns stable surrogate ids to referents. Every referent is
// pinned so its address cannot be reused by a different value while the
// table is alive.
type identityTable struct {
	ids  map[identity]int
	pins []any
}

func (t *identityTable) id(v reflect.Value) int {
	key := identity{typ: v.Type(), addr: v.Pointer()}
	if id, ok := t.ids[key]; ok {
		return id
	}
	if t.ids == nil {
		t.ids = make(map[identity]int)
	}
	id := len(t.ids) + 1
	t.ids[key] = id
	if v.CanInterface() {
		t.pins = append(t.pins, v.Interface())
	}
	return id
}

// Serializer derives deterministic strings from arbitrary values.
//
// Primitives serialize as "type:value", time.Time as "date:<unix millis>"
// and composite values by a stable deep walk (map keys sorted, struct fields
// in declaration order). A value that contains a reference cycle is
// identified by a surrogate "ref:<n>" instead: the same referent always gets
// the same id, different referents get different ids.
//
// A Serializer is not safe for concurrent use.
type Serializer struct {
	table identityTable
}

// Serialize returns the key string for v. Results longer than 512 bytes are
// replaced with an xxhash digest.
func (s *Serializer) Serialize(v any) string {
	out := s.serialize(v)
	if len(out) > digestThreshold {
		return "xxh:" + strconv.Itoa(len(out)) + ":" + strconv.FormatUint(xxhash.Sum64String(out), 16)
	}
	return out
}

// Reset forgets every surrogate id and releases pinned referents.
func (s *Serializer) Reset() {
	s.table = identityTable{}
}

func (s *Serializer) serialize(v any) string {
	if v == nil {
		return "nil"
	}
	rv := reflect.ValueOf(v)
	w := walker{table: &s.table, active: make(map[identity]bool)}
	var b strings.Builder
	if err := w.write(&b, rv); err != nil {
		return "ref:" + strconv.Itoa(s.table.id(w.cycleRoot(rv)))
	}
	return b.String()
}

type walker struct {
	table  *identityTable
	active map[identity]bool // references on the current path
	closer reflect.Value     // the reference that closed the cycle
}

// cycleRoot is the referent a cyclic value is identified by: the value
// itself when it is a reference, otherwise the reference that closed the
// cycle.
func (w *walker) cycleRoot(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if !rv.IsNil() {
			return rv
		}
	}
	return w.closer
}

// enter marks a reference as on the current path. It reports errCycle when
// the reference is already being walked.
func (w *walker) enter(v reflect.Value) (identity, error) {
	key := identity{typ: v.Type(), addr: v.Pointer()}
	if w.active[key] {
		w.closer = v
		return key, errCycle
	}
	w.active[key] = true
	return key, nil
}

func (w *walker) write(b *strings.Builder, v reflect.Value) error {
	if !v.IsValid() {
		b.WriteString("nil")
		return nil
	}
	t := v.Type()

	if t == timeType && v.CanInterface() {
		b.WriteString("date:")
		b.WriteString(strconv.FormatInt(v.Interface().(time.Time).UnixMilli(), 10))
		return nil
	}

	switch v.Kind() {
	case reflect.Bool:
		b.WriteString(t.String())
		b.WriteByte(':')
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(t.String())
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(t.String())
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString(t.String())
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, t.Bits()))
	case reflect.Complex64, reflect.Complex128:
		b.WriteString(t.String())
		b.WriteByte(':')
		b.WriteString(strconv.FormatComplex(v.Complex(), 'g', -1, t.Bits()))
	case reflect.String:
		b.WriteString(t.String())
		b.WriteByte(':')
		b.WriteString(strconv.Quote(v.String()))

	case reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return nil
		}
		return w.write(b, v.Elem())

	case reflect.Pointer:
		if v.IsNil() {
			b.WriteString("nil")
			return nil
		}
		// Locations are shared singletons with large internal tables.
		if t.Elem() == locationType {
			b.WriteString("loc")
			return nil
		}
		key, err := w.enter(v)
		if err != nil {
			return err
		}
		defer delete(w.active, key)
		b.WriteByte('&')
		return w.write(b, v.Elem())

	case reflect.Slice:
		if v.IsNil() {
			b.WriteString("nil")
			return nil
		}
		if v.Cap() > 0 {
			key, err := w.enter(v)
			if err != nil {
				return err
			}
			defer delete(w.active, key)
		}
		return w.writeSeq(b, v)

	case reflect.Array:
		return w.writeSeq(b, v)

	case reflect.Map:
		if v.IsNil() {
			b.WriteString("nil")
			return nil
		}
		key, err := w.enter(v)
		if err != nil {
			return err
		}
		defer delete(w.active, key)
		return w.writeMap(b, v)

	case reflect.Struct:
		b.WriteString(t.String())
		b.WriteByte('{')
		for i := 0; i < v.NumField(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(t.Field(i).Name)
			b.WriteByte('=')
			if err := w.write(b, v.Field(i)); err != nil {
				return err
			}
		}
		b.WriteByte('}')

	default:
		// Funcs, channels and unsafe pointers have no value representation.
		b.WriteString(v.Kind().String())
		b.WriteString(":ref:")
		b.WriteString(strconv.Itoa(w.table.id(v)))
	}
	return nil
}

func (w *walker) writeSeq(b *strings.Builder, v reflect.Value) error {
	b.WriteString(v.Type().String())
	b.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := w.write(b, v.Index(i)); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

func (w *walker) writeMap(b *strings.Builder, v reflect.Value) error {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var kb, vb strings.Builder
		if err := w.write(&kb, iter.Key()); err != nil {
			return err
		}
		if err := w.write(&vb, iter.Value()); err != nil {
			return err
		}
		pairs = append(pairs, pair{kb.String(), vb.String()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	b.WriteString(v.Type().String())
	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.k)
		b.WriteByte(':')
		b.WriteString(p.v)
	}
	b.WriteByte('}')
	return nil
}
