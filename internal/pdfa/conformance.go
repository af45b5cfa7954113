package pdfa

import (
	"fmt"
	"strings"
)

// Conformance is a PDF/A part and conformance level pair.
type Conformance int

const (
	// ConformanceNone means the document claims no PDF/A conformance.
	ConformanceNone Conformance = iota
	PDFA1A
	PDFA1B
	PDFA2A
	PDFA2B
	PDFA2U
	PDFA3A
	PDFA3B
	PDFA3U
)

// DefaultConformance is the level the converter targets unless told otherwise.
const DefaultConformance = PDFA2B

var conformanceNames = map[Conformance]string{
	ConformanceNone: "None",
	PDFA1A:          "PDF/A-1a",
	PDFA1B:          "PDF/A-1b",
	PDFA2A:          "PDF/A-2a",
	PDFA2B:          "PDF/A-2b",
	PDFA2U:          "PDF/A-2u",
	PDFA3A:          "PDF/A-3a",
	PDFA3B:          "PDF/A-3b",
	PDFA3U:          "PDF/A-3u",
}

func (c Conformance) String() string {
	if name, ok := conformanceNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Part returns the PDF/A part number (1, 2 or 3), or 0 for ConformanceNone.
func (c Conformance) Part() int {
	switch c {
	case PDFA1A, PDFA1B:
		return 1
	case PDFA2A, PDFA2B, PDFA2U:
		return 2
	case PDFA3A, PDFA3B, PDFA3U:
		return 3
	default:
		return 0
	}
}

// Level returns the conformance level letter: "a", "b" or "u".
func (c Conformance) Level() string {
	switch c {
	case PDFA1A, PDFA2A, PDFA3A:
		return "a"
	case PDFA1B, PDFA2B, PDFA3B:
		return "b"
	case PDFA2U, PDFA3U:
		return "u"
	default:
		return ""
	}
}

// levelRank orders levels by strictness: b < u < a.
func levelRank(level string) int {
	switch level {
	case "b":
		return 1
	case "u":
		return 2
	case "a":
		return 3
	default:
		return 0
	}
}

// Satisfies reports whether a document claiming c also meets target.
// A claim satisfies a target of the same part at an equal or looser level.
func (c Conformance) Satisfies(target Conformance) bool {
	if c == ConformanceNone || target == ConformanceNone {
		return false
	}
	return c.Part() == target.Part() && levelRank(c.Level()) >= levelRank(target.Level())
}

// IsTargetable reports whether the converter can produce documents of this
// conformance. Level "a" requires a logical structure tree, which the
// converter does not synthesize.
func (c Conformance) IsTargetable() bool {
	return c.Part() > 0 && c.Level() != "a"
}

// AllowsTransparency is false only for PDF/A-1.
func (c Conformance) AllowsTransparency() bool { return c.Part() != 1 }

// AllowsOptionalContent is false only for PDF/A-1.
func (c Conformance) AllowsOptionalContent() bool { return c.Part() != 1 }

// AllowsEmbeddedFiles reports whether any attachment may be present.
func (c Conformance) AllowsEmbeddedFiles() bool { return c.Part() >= 2 }

// AllowsArbitraryEmbeddedFiles reports whether attachments other than
// PDF/A documents may be present (PDF/A-3).
func (c Conformance) AllowsArbitraryEmbeddedFiles() bool { return c.Part() == 3 }

// RequiresUnicode reports whether every font needs a Unicode mapping.
func (c Conformance) RequiresUnicode() bool {
	return c.Level() == "u" || c.Level() == "a"
}

// ParseConformance accepts "PDF/A-2b", "pdfa-2b", "pdfa2b", "2b" and the like.
func ParseConformance(s string) (Conformance, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range []string{"pdf/a-", "pdfa-", "pdf/a", "pdfa", "a-"} {
		if strings.HasPrefix(key, prefix) {
			key = strings.TrimPrefix(key, prefix)
			break
		}
	}
	for c, name := range conformanceNames {
		if c == ConformanceNone {
			continue
		}
		if strings.TrimPrefix(strings.ToLower(name), "pdf/a-") == key {
			return c, nil
		}
	}
	return ConformanceNone, &Error{
		Code:    CodeIllegalArgument,
		Op:      "parse conformance",
		Message: fmt.Sprintf("unknown conformance %q", s),
	}
}

// conformanceFromClaim maps the XMP pdfaid part and conformance values.
func conformanceFromClaim(part int, level string) Conformance {
	want := fmt.Sprintf("PDF/A-%d%s", part, strings.ToLower(level))
	for c, name := range conformanceNames {
		if name == want {
			return c
		}
	}
	return ConformanceNone
}

// TargetableConformances lists the levels accepted as conversion targets.
func TargetableConformances() []Conformance {
	return []Conformance{PDFA1B, PDFA2B, PDFA2U, PDFA3B, PDFA3U}
}
