package broker

import "strings"

// SymbolPattern is a venue symbol group with optional leading and trailing
// wildcards: *X*, X*, *X or an exact name. Matching ignores case.
type SymbolPattern struct {
	raw      string
	core     string
	anyStart bool
	anyEnd   bool
}

// ParseSymbolPattern parses a pattern such as *WIN*
func ParseSymbolPattern(pattern string) SymbolPattern {
	p := SymbolPattern{raw: pattern}
	core := strings.ToUpper(strings.TrimSpace(pattern))
	if strings.HasPrefix(core, "*") {
		p.anyStart = true
		core = core[1:]
	}
	if strings.HasSuffix(core, "*") {
		p.anyEnd = true
		core = core[:len(core)-1]
	}
	p.core = core
	return p
}

// Match reports whether symbol belongs to the pattern
func (p SymbolPattern) Match(symbol string) bool {
	s := strings.ToUpper(symbol)
	switch {
	case p.anyStart && p.anyEnd:
		return strings.Contains(s, p.core)
	case p.anyStart:
		return strings.HasSuffix(s, p.core)
	case p.anyEnd:
		return strings.HasPrefix(s, p.core)
	default:
		return s == p.core
	}
}

// String returns the pattern as written
func (p SymbolPattern) String() string {
	return p.raw
}

// NormalizeSymbolPattern turns a strategy symbol into the venue group used to
// fetch its deals: any mini-index contract (WIN...) maps to *WIN*, anything
// else is wrapped as *symbol*.
func NormalizeSymbolPattern(symbol string) string {
	if strings.Contains(strings.ToUpper(symbol), "WIN") {
		return "*WIN*"
	}
	return "*" + strings.Trim(symbol, "*") + "*"
}

// FileSymbol is the symbol part of a report file name for a pattern
func FileSymbol(pattern string) string {
	return strings.Trim(pattern, "*")
}
