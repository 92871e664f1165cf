package codehash

import "encoding/json"

// Hash is a contract code hash that may be absent. The zero value is None.
type Hash struct {
	value string
	ok    bool
}

func Some(v string) Hash { return Hash{value: v, ok: v != ""} }

func None() Hash { return Hash{} }

func (h Hash) Get() (string, bool) { return h.value, h.ok }

func (h Hash) IsNone() bool { return !h.ok }

// Matches reports exact equality with ref. None never matches.
func (h Hash) Matches(ref string) bool {
	return h.ok && h.value == ref
}

func (h Hash) String() string {
	if !h.ok {
		return "<none>"
	}
	return h.value
}

// MarshalJSON encodes None as null.
func (h Hash) MarshalJSON() ([]byte, error) {
	if !h.ok {
		return []byte("null"), nil
	}
	return json.Marshal(h.value)
}
