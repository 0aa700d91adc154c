package core

import (
	"fmt"
	"sort"
	"strings"
)

// NoDigitsError reports an identifier that NumericKey cannot order.
type NoDigitsError struct {
	MFN    string
	Record int // 1-based position among the identifiers
}

func (e *NoDigitsError) Error() string {
	return fmt.Sprintf("%v: %q (record %d)", ErrNoDigits, e.MFN, e.Record)
}

func (e *NoDigitsError) Unwrap() error { return ErrNoDigits }

// NumericKey returns the ordering key of an identifier: every non-digit is
// removed and leading zeros are trimmed, so "MFN007" and "7" share the key
// "7". The key is a decimal string of arbitrary length, which keeps very
// long identifiers from overflowing. ok is false when the identifier has
// no digits at all.
func NumericKey(mfn string) (key string, ok bool) {
	var b strings.Builder
	for _, r := range mfn {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	key = strings.TrimLeft(b.String(), "0")
	if key == "" {
		key = "0"
	}
	return key, true
}

// compareKeys orders two keys produced by NumericKey numerically.
func compareKeys(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// IdentifierRange returns the smallest and largest identifiers by numeric
// key. The returned values are the original strings, not their keys. Ties
// keep source order, so the first of equal keys is the minimum and the last
// is the maximum.
//
// An identifier without digits is rejected with ErrNoDigits; an empty
// sequence yields ErrNoRecords.
func IdentifierRange(mfns []string) (lo, hi string, err error) {
	if len(mfns) == 0 {
		return "", "", ErrNoRecords
	}

	type keyed struct {
		mfn string
		key string
	}
	items := make([]keyed, len(mfns))
	for i, mfn := range mfns {
		key, ok := NumericKey(mfn)
		if !ok {
			return "", "", &NoDigitsError{MFN: mfn, Record: i + 1}
		}
		items[i] = keyed{mfn: mfn, key: key}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return compareKeys(items[i].key, items[j].key) < 0
	})
	return items[0].mfn, items[len(items)-1].mfn, nil
}

// Duplicates returns the identifiers that occur more than once, in the
// order each was first seen.
func Duplicates(mfns []string) []string {
	counts := make(map[string]int, len(mfns))
	order := make([]string, 0, len(mfns))
	for _, mfn := range mfns {
		if counts[mfn] == 0 {
			order = append(order, mfn)
		}
		counts[mfn]++
	}

	var dups []string
	for _, mfn := range order {
		if counts[mfn] > 1 {
			dups = append(dups, mfn)
		}
	}
	return dups
}

// Analysis summarises the identifiers of a parsed batch.
type Analysis struct {
	MinMFN     string   `json:"min_mfn"`
	MaxMFN     string   `json:"max_mfn"`
	Duplicates []string `json:"duplicates,omitempty"`
}

// Analyze computes the identifier range and duplicates of a batch.
func Analyze(batch Batch) (Analysis, error) {
	lo, hi, err := IdentifierRange(batch.MFNs)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{
		MinMFN:     lo,
		MaxMFN:     hi,
		Duplicates: Duplicates(batch.MFNs),
	}, nil
}
