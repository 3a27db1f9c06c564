package classifier

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SecureFilename reduces an uploaded filename to a flat ASCII name safe to use on disk:
// path components are flattened, whitespace becomes '_', anything outside [A-Za-z0-9_.-]
// is dropped and leading or trailing dots and underscores are trimmed.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)

	var ascii strings.Builder
	ascii.Grow(len(name))
	for _, r := range name {
		if r < utf8.RuneSelf {
			ascii.WriteRune(r)
		}
	}

	flat := strings.NewReplacer("/", " ", "\\", " ").Replace(ascii.String())
	joined := strings.Join(strings.Fields(flat), "_")

	var safe strings.Builder
	safe.Grow(len(joined))
	for i := 0; i < len(joined); i++ {
		if b := joined[i]; isSafeFilenameByte(b) {
			safe.WriteByte(b)
		}
	}
	return strings.Trim(safe.String(), "._")
}

func isSafeFilenameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '_', b == '.', b == '-':
		return true
	}
	return false
}
