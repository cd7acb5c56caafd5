// Package incremental decides whether a site needs rebuilding by comparing
// the watch list against the fingerprint of the last detected rebuild.
package incremental

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// pathSeparator cannot occur inside a filesystem path, so the joined form
// is unambiguous.
const pathSeparator = "\x00"

// HashPaths returns the hex SHA-256 of the paths joined in order. The hash
// is order sensitive and keeps duplicates; an empty list hashes "".
func HashPaths(paths []string) string {
	sum := sha256.Sum256([]byte(strings.Join(paths, pathSeparator)))
	return hex.EncodeToString(sum[:])
}
