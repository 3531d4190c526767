// Package cursor encodes pagination positions as opaque strings. The
// cursor wraps the last-seen row id; listings order by id so replaying a
// cursor yields the next disjoint page with no duplicates or gaps.
package cursor

import (
	"encoding/base64"
	"errors"
	"strconv"
)

// ErrInvalid is returned for cursors that were not produced by Encode.
var ErrInvalid = errors.New("invalid cursor")

// Encode wraps the last-seen id into an opaque cursor. A zero id encodes
// to the empty string, meaning "start from the beginning".
func Encode(lastID uint64) string {
	if lastID == 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte("id:" + strconv.FormatUint(lastID, 10)))
}

// Decode unwraps a cursor produced by Encode. The empty string decodes to
// id 0 (first page).
func Decode(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, ErrInvalid
	}
	const prefix = "id:"
	if len(b) <= len(prefix) || string(b[:len(prefix)]) != prefix {
		return 0, ErrInvalid
	}
	id, err := strconv.ParseUint(string(b[len(prefix):]), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalid
	}
	return id, nil
}

// Clamp bounds a requested page size to [1, max], defaulting to def when
// the request omits it.
func Clamp(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
