// Package editor implements the C8 editor-buffer parser: splitting a
// temp-file buffer produced by the user's $EDITOR into a password and
// a notes body.
package editor

import "strings"

// Parse splits buffer per spec.md §4.8: the first line is the
// password (absent if buffer is empty); the remaining lines, after
// skipping leading blanks and dropping any '#'-prefixed line, are
// joined with '\n' and trimmed of trailing newlines to form notes.
func Parse(buffer string) (password *string, notes *string) {
	if buffer == "" {
		return nil, nil
	}

	lines := strings.Split(buffer, "\n")
	pw := lines[0]
	password = &pw

	rest := lines[1:]
	i := 0
	for i < len(rest) && rest[i] == "" {
		i++
	}
	rest = rest[i:]

	var kept []string
	for _, l := range rest {
		if strings.HasPrefix(l, "#") {
			continue
		}
		kept = append(kept, l)
	}

	body := strings.TrimRight(strings.Join(kept, "\n"), "\n")
	if body == "" {
		return password, nil
	}
	return password, &body
}

// ParseNotesOnly reuses Parse for the secure-note edit path by
// prepending a blank line, per spec.md §4.8, and discards the
// synthetic password half.
func ParseNotesOnly(buffer string) *string {
	_, notes := Parse("\n" + buffer)
	return notes
}
