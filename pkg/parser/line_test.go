package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Row
	}{
		{"plain", "a,b,c", Row{"a", "b", "c"}},
		{"quoted delimiter", `"Smith, John",555-1234`, Row{"Smith, John", "555-1234"}},
		{"trims values", "  ROC123 ,  Acme Co  ", Row{"ROC123", "Acme Co"}},
		{"empty line", "", Row{""}},
		{"trailing delimiter", "a,b,", Row{"a", "b", ""}},
		{"empty fields", ",,", Row{"", "", ""}},
		{"quotes dropped mid-field", `ab"c,d"e`, Row{"abc,de"}},
		{"doubled quote is dropped", `"Joe ""JJ"" Smith",x`, Row{"Joe JJ Smith", "x"}},
		{"unterminated quote runs to end", `"open,field,still`, Row{"open,field,still"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLine(tt.line))
		})
	}
}

func TestScanLine_UnescapeQuotes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UnescapeQuotes = true
	s := NewLineScanner(cfg)

	assert.Equal(t, Row{`Joe "JJ" Smith`, "x"}, s.ScanLine(`"Joe ""JJ"" Smith",x`))
	assert.Equal(t, Row{"Smith, John", "555-1234"}, s.ScanLine(`"Smith, John",555-1234`))
	// Outside quotes a doubled quote still just toggles twice.
	assert.Equal(t, Row{"ab"}, s.ScanLine(`a""b`))
}

func TestScanLine_CustomDelimiter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimiter = '\t'
	s := NewLineScanner(cfg)

	assert.Equal(t, Row{"ROC1", "Acme, Inc", "Phoenix"}, s.ScanLine("ROC1\tAcme, Inc\t\"Phoenix\""))
}

func TestScanLine_ReusesScanner(t *testing.T) {
	s := NewLineScanner(DefaultConfig())
	first := s.ScanLine("a,b")
	second := s.ScanLine("c,d")

	assert.Equal(t, Row{"a", "b"}, first)
	assert.Equal(t, Row{"c", "d"}, second)
}
