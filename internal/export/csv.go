package export

import (
	"io"
	"strings"
)

// writeCSV serializes rows as RFC 4180 CSV with every field quoted. The
// stdlib encoding/csv writer only quotes fields that need it, and the
// manifest contract is that all fields are quoted, so this is hand-rolled.
// encoding/csv readers parse the output fine (see the round-trip tests).
func writeCSV(w io.Writer, rows [][]string) error {
	var b strings.Builder
	for _, row := range rows {
		b.Reset()
		for i, field := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(field, `"`, `""`))
			b.WriteByte('"')
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// EscapeNewlines rewrites literal line breaks as the two-character sequence
// \n so long-form manifest rows stay on one physical line.
func EscapeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", `\n`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return strings.ReplaceAll(s, "\r", `\n`)
}

// UnescapeNewlines reverses EscapeNewlines.
func UnescapeNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
