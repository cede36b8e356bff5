// Package league normalizes competition identifiers at the system boundary.
//
// Ids arrive in two textual encodings: the raw string as written by the
// training step ("04414", " 4414") and the integer-as-string form ("4414").
// Both name the same league. ID keeps the raw form for the dual-key
// migration window and uses the normalized form everywhere else.
package league

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ID is one logical league identifier.
type ID struct {
	raw        string
	normalized string
	numeric    bool
}

// Parse trims raw and derives its normalized form. Integer ids normalize to
// their decimal representation; anything else normalizes to the trimmed string.
func Parse(raw string) (ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ID{}, fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if strings.ContainsAny(trimmed, "/\\") {
		return ID{}, fmt.Errorf("%w: %q contains a path separator", ErrInvalidID, raw)
	}
	id := ID{raw: raw, normalized: trimmed}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		id.normalized = strconv.FormatInt(n, 10)
		id.numeric = true
	}
	return id, nil
}

// MustParse is Parse for constants and tests.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the normalized form.
func (id ID) String() string { return id.normalized }

// Raw returns the id exactly as it was received.
func (id ID) Raw() string { return id.raw }

// Numeric reports whether the id has an integer form.
func (id ID) Numeric() bool { return id.numeric }

// IsZero reports whether id was never parsed.
func (id ID) IsZero() bool { return id.normalized == "" }

// Equal compares normalized forms.
func (id ID) Equal(other ID) bool { return id.normalized == other.normalized }

// Keys returns the document keys id is persisted under: the normalized key
// first, then the raw key when dualWrite is set and the raw form differs.
func (id ID) Keys(dualWrite bool) []string {
	keys := []string{id.normalized}
	if dualWrite && id.raw != id.normalized {
		keys = append(keys, id.raw)
	}
	return keys
}

// Sort orders ids by normalized form, numerically when both are numeric.
func Sort(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return Less(ids[i], ids[j]) })
}

// Less orders numeric ids before non-numeric ones, numerically among themselves.
func Less(a, b ID) bool {
	switch {
	case a.numeric && b.numeric:
		an, _ := strconv.ParseInt(a.normalized, 10, 64)
		bn, _ := strconv.ParseInt(b.normalized, 10, 64)
		if an != bn {
			return an < bn
		}
		return a.raw < b.raw
	case a.numeric != b.numeric:
		return a.numeric
	case a.normalized != b.normalized:
		return a.normalized < b.normalized
	default:
		return a.raw < b.raw
	}
}
