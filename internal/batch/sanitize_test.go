package batch

import "testing"

// TestSanitizeFileName checks invalid character replacement rules.
func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.txt", "report.txt"},
		{`a/b\c.txt`, "a_b_c.txt"},
		{`what?.log`, "what_.log"},
		{`"quoted" <name>|x.dat`, "_quoted_ _name__x.dat"},
		{"drive:file.bin", "drive_file.bin"},
		{"trailing. . ", "trailing"},
		{"", "file"},
		{"???", "___"},
		{". ", "file"},
	}

	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestSanitizeFileNameReplacesControlCharacters checks low bytes map to
// underscores.
func TestSanitizeFileNameReplacesControlCharacters(t *testing.T) {
	if got := SanitizeFileName("a\tb\nc"); got != "a_b_c" {
		t.Fatalf("got %q, want a_b_c", got)
	}
}
