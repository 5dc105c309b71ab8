package index

import "strconv"

// RID locates the on-disk record an index entry points at: the page
// holding it and its real byte offset within that page, mirroring
// table.RID. Index entries always carry the offset the table store
// actually wrote a record at, never a placeholder formula.
type RID struct {
	PageID uint32
	Offset uint32
}

// compareKeys orders two index keys. Keys are homogeneous per index
// (one indexed column, one declared type), but a literal arriving from
// the parser may be a string where the column is INT or vice versa;
// coerce the same way table.Condition does before falling back to
// string comparison.
func compareKeys(a, b any) int {
	if ai, aok := asInt(a); aok {
		if bi, bok := asInt(b); bok {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := asString(a), asString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func keysEqual(a, b any) bool {
	return compareKeys(a, b) == 0
}

func asInt(v any) (int32, bool) {
	switch t := v.(type) {
	case int32:
		return t, true
	case string:
		n, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, false
		}
		return int32(n), true
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int32:
		return strconv.FormatInt(int64(t), 10)
	default:
		return ""
	}
}
