package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// MinerUID identifies a miner. Miners are addressed by JSON numbers or strings;
// numbers are kept as their literal text.
type MinerUID string

// UnmarshalJSON accepts a string, a number or null.
func (u *MinerUID) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*u = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("miner uid: %w", err)
		}
		*u = MinerUID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("miner uid must be a string or number: %w", err)
	}
	*u = MinerUID(n.String())
	return nil
}

// MarshalJSON writes numeric UIDs back as numbers.
func (u MinerUID) MarshalJSON() ([]byte, error) {
	if u.IsNumeric() {
		return []byte(u), nil
	}
	return json.Marshal(string(u))
}

// IsNumeric reports whether the UID is a valid JSON number literal.
func (u MinerUID) IsNumeric() bool {
	s := string(u)
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

func (u MinerUID) String() string { return string(u) }

// IndexUID is the UID used for a miner whose UID was not supplied.
func IndexUID(i int) MinerUID {
	return MinerUID(strconv.Itoa(i))
}

// ResolveUID returns uids[i], or the positional index when the slot is missing or empty.
func ResolveUID(uids []MinerUID, i int) MinerUID {
	if i < len(uids) && uids[i] != "" {
		return uids[i]
	}
	return IndexUID(i)
}
