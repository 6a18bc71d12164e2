package batch

import "strings"

// SanitizeFileName maps an arbitrary base name to a filesystem-safe name.
// Path separators, characters rejected by Windows and control characters
// collapse to underscores; trailing dots and spaces are trimmed. The
// result is never empty.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r < 0x20:
			b.WriteByte('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimRight(b.String(), ". ")
	if out == "" {
		return "file"
	}
	return out
}
