package parser

import "strings"

// LineScanner splits one line of delimited text into fields.
//
// The scan is a single left-to-right pass with an in-quotes flag. A quote
// character toggles the flag and is not copied into the value; a delimiter
// outside quotes closes the current field. Values are trimmed. Malformed
// quoting is never an error: an unterminated quote simply runs to the end of
// the line.
type LineScanner struct {
	delimiter byte
	unescape  bool
	buf       strings.Builder
}

// NewLineScanner creates a scanner for the given configuration.
func NewLineScanner(cfg Config) *LineScanner {
	delim := cfg.Delimiter
	if delim == 0 {
		delim = ','
	}
	return &LineScanner{
		delimiter: delim,
		unescape:  cfg.UnescapeQuotes,
	}
}

// ScanLine returns the fields of line. An empty line yields one empty field.
func (s *LineScanner) ScanLine(line string) Row {
	fields := make(Row, 0, 16)
	s.buf.Reset()
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if s.unescape && inQuotes && i+1 < len(line) && line[i+1] == '"' {
				s.buf.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == s.delimiter && !inQuotes:
			fields = append(fields, strings.TrimSpace(s.buf.String()))
			s.buf.Reset()
		default:
			s.buf.WriteByte(c)
		}
	}

	return append(fields, strings.TrimSpace(s.buf.String()))
}

// SplitLine splits a comma-delimited line with the default configuration.
func SplitLine(line string) Row {
	return NewLineScanner(DefaultConfig()).ScanLine(line)
}

// trimLineEnding removes trailing \n and \r characters.
func trimLineEnding(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
