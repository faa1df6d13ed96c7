package storage

// Matches reports whether every filter entry equals the corresponding
// record field. Backends that keep documents as generic maps (memory,
// redis) share this so filter semantics stay identical across them.
//
// Numeric comparison is loose across int/int32/int64/float64: a record
// that round-tripped through JSON carries float64 where the filter may
// carry an int.
func Matches(rec Record, filter Filter) bool {
	for field, want := range filter {
		got, ok := rec[field]
		if !ok {
			return false
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return aok && bok && af == bf
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
