package pdfa

import (
	"sort"

	"github.com/ledongthuc/pdf"
)

// fontIssue is one font problem found on a page.
type fontIssue struct {
	page     int
	resource string
	baseFont string
	code     FindingCode
}

// standardEncodings map every code to a glyph name with a known Unicode value.
var standardEncodings = map[string]bool{
	"WinAnsiEncoding":   true,
	"MacRomanEncoding":  true,
	"StandardEncoding":  true,
	"MacExpertEncoding": true,
}

// inspectFonts reports fonts that are not embedded and, when unicode is set,
// fonts without a Unicode mapping. Each font dictionary is reported once, on
// the first page that uses it.
func inspectFonts(r *pdf.Reader, unicode bool) (issues []fontIssue, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &Error{Code: CodeUnsupported, Op: "inspect fonts", Message: "malformed font resources"}
		}
	}()

	seen := map[string]bool{}
	for n := 1; n <= r.NumPage(); n++ {
		p := r.Page(n)
		if p.V.IsNull() {
			continue
		}
		names := p.Fonts()
		sort.Strings(names)
		for _, name := range names {
			font := p.Font(name).V
			base := font.Key("BaseFont").Name()
			key := base + "/" + font.Key("Subtype").Name()
			if seen[key] {
				continue
			}
			seen[key] = true

			if !fontEmbedded(font) {
				issues = append(issues, fontIssue{page: n, resource: name, baseFont: base, code: FindingFontNotEmbedded})
			}
			if unicode && !fontHasUnicode(font) {
				issues = append(issues, fontIssue{page: n, resource: name, baseFont: base, code: FindingFontNoUnicode})
			}
		}
	}
	return issues, nil
}

func fontEmbedded(font pdf.Value) bool {
	switch font.Key("Subtype").Name() {
	case "Type3":
		// glyphs are content streams inside the font dictionary
		return true
	case "Type0":
		descendant := font.Key("DescendantFonts").Index(0)
		return descriptorEmbedded(descendant.Key("FontDescriptor"))
	default:
		return descriptorEmbedded(font.Key("FontDescriptor"))
	}
}

func descriptorEmbedded(fd pdf.Value) bool {
	if fd.IsNull() {
		return false
	}
	return !fd.Key("FontFile").IsNull() || !fd.Key("FontFile2").IsNull() || !fd.Key("FontFile3").IsNull()
}

func fontHasUnicode(font pdf.Value) bool {
	if !font.Key("ToUnicode").IsNull() {
		return true
	}
	if font.Key("Subtype").Name() == "Type0" {
		return false
	}
	enc := font.Key("Encoding")
	switch enc.Kind() {
	case pdf.Name:
		return standardEncodings[enc.Name()]
	case pdf.Dict:
		if !enc.Key("Differences").IsNull() {
			return false
		}
		return standardEncodings[enc.Key("BaseEncoding").Name()]
	default:
		return false
	}
}
