package protocol

import (
	"bytes"
	"strings"
	"unicode"
)

// Frame extracts the command line from one read. The bytes are treated
// as a NUL-terminated string; only the first line is used. dropped
// reports whether non-blank data followed the first line.
func Frame(buf []byte) (line string, dropped bool) {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	s := string(buf)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		dropped = strings.TrimSpace(s[i+1:]) != ""
		s = s[:i]
	}
	return strings.TrimSpace(s), dropped
}

// Tokenize splits a line into its first whitespace-delimited token and
// the remaining argument string. Blank arguments are returned as "".
func Tokenize(line string) (name, args string) {
	line = strings.TrimSpace(line)
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}
