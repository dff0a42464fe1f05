package document

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
)

// Equal reports whether a and b hold the same document value. Sequences are
// compared as multisets since element order carries no meaning in fetched
// documents, numbers compare numerically regardless of their Go type and nil
// equals an absent value.
func Equal(a, b any) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}

	switch ka {
	case Null:
		return true
	case Mapping:
		ma, _ := AsMap(a)
		mb, _ := AsMap(b)
		if len(ma) != len(mb) {
			return false
		}
		for key, va := range ma {
			vb, ok := mb[key]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	case Sequence:
		sa, _ := AsSlice(a)
		sb, _ := AsSlice(b)
		return sameElements(sa, sb)
	default:
		return scalarEqual(a, b)
	}
}

// Contains reports whether seq holds an element equal to v.
func Contains(seq []any, v any) bool {
	for _, item := range seq {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// Difference returns the elements of a that have no equal element in b,
// keeping the order in which they appear in a.
func Difference(a, b []any) []any {
	out := make([]any, 0, len(a))
	for _, item := range a {
		if !Contains(b, item) {
			out = append(out, item)
		}
	}
	return out
}

func sameElements(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, item := range a {
		matched := false
		for j, candidate := range b {
			if used[j] || !Equal(item, candidate) {
				continue
			}
			used[j] = true
			matched = true
			break
		}
		if !matched {
			return false
		}
	}
	return true
}

func scalarEqual(a, b any) bool {
	if number, ok := a.(json.Number); ok {
		return numberEqual(number, b)
	}
	if number, ok := b.(json.Number); ok {
		return numberEqual(number, a)
	}
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		if !(aNum && bNum) {
			return false
		}
		if math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
		return fa == fb
	}
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}

// numberEqual compares two json.Numbers exactly and falls back to float64
// when the other side is a native number.
func numberEqual(number json.Number, other any) bool {
	if peer, ok := other.(json.Number); ok {
		x, xOK := new(big.Rat).SetString(number.String())
		y, yOK := new(big.Rat).SetString(peer.String())
		if xOK && yOK {
			return x.Cmp(y) == 0
		}
		return number == peer
	}
	f, ok := toFloat(other)
	if !ok {
		return false
	}
	g, err := number.Float64()
	return err == nil && f == g
}

func toFloat(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
