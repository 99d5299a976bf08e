package snapshot

import (
	"encoding/json"
	"strconv"
)

// Users is an active-user count that may be unknown. An unknown count is not
// the same as zero users; it only folds in as zero when totals are summed.
type Users struct {
	N     int64
	Known bool
}

// Unknown is the zero value of Users.
var Unknown = Users{}

// KnownUsers returns a known count of n users.
func KnownUsers(n int64) Users {
	return Users{N: n, Known: true}
}

// Value returns the count and whether it is known.
func (u Users) Value() (int64, bool) {
	return u.N, u.Known
}

func (u Users) String() string {
	if !u.Known {
		return "unknown"
	}
	return strconv.FormatInt(u.N, 10)
}

// MarshalJSON encodes a known count as a number and an unknown one as null.
func (u Users) MarshalJSON() ([]byte, error) {
	if !u.Known {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(u.N, 10)), nil
}

// UnmarshalJSON accepts a number or null.
func (u *Users) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*u = Unknown
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}

	*u = KnownUsers(n)
	return nil
}
