// Package store enumerates and filters the entries of a password store.
//
// An entry is named by its path relative to the store root with the ".gpg"
// suffix removed, using "/" as the separator: "email/work" for
// $PASSWORD_STORE_DIR/email/work.gpg. Every Lister returns names sorted
// without regard to case.
package store

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
)

// Suffix is the extension of an encrypted entry.
const Suffix = ".gpg"

// ErrBinaryNotFound is returned when an external tool isn't on $PATH.
var ErrBinaryNotFound = errors.New("binary not found")

// Lister enumerates store entries. With otp set, only entries whose file
// name matches the OTP glob are returned.
type Lister interface {
	List(ctx context.Context, otp bool) ([]string, error)
}

// SortFold sorts names case-insensitively. Names equal under case folding
// are ordered bytewise so the result is deterministic.
func SortFold(names []string) {
	sort.Slice(names, func(i, j int) bool {
		a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
}

// Matches reports whether the file name of entry (with the suffix restored)
// matches glob. The glob applies to the last path element only.
func matches(glob, entry string) bool {
	ok, _ := Match(glob, path.Base(entry)+Suffix)
	return ok
}

// Match reports whether name matches the shell pattern glob, as fnmatch(3)
// does: a bracket expression opened with "[!" is negated, the same as "[^".
// The only error returned is path.ErrBadPattern.
func Match(glob, name string) (bool, error) {
	return path.Match(fnmatchGlob(glob), name)
}

// FnmatchGlob rewrites negated bracket expressions into path.Match syntax.
func fnmatchGlob(glob string) string {
	if !strings.Contains(glob, "[!") {
		return glob
	}
	b := []byte(glob)
	inClass := false
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '\\':
			i++
		case !inClass && b[i] == '[':
			inClass = true
			if i+1 < len(b) && b[i+1] == '!' {
				b[i+1] = '^'
				i++
			}
		case inClass && b[i] == ']':
			inClass = false
		}
	}
	return string(b)
}
