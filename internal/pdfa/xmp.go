package pdfa

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	nsPDFAID = "http://www.aiim.org/pdfa/ns/id/"
	nsRDF    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

// Metadata is the document information mirrored into the XMP packet.
type Metadata struct {
	Conformance  Conformance
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate time.Time
	ModDate      time.Time
}

// BuildXMP renders an XMP packet carrying the PDF/A identification schema
// and the document information in m.
func BuildXMP(m Metadata) []byte {
	var b bytes.Buffer
	b.WriteString("<?xpacket begin=\"\ufeff\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>\n")
	b.WriteString("<x:xmpmeta xmlns:x=\"adobe:ns:meta/\">\n")
	b.WriteString(" <rdf:RDF xmlns:rdf=\"" + nsRDF + "\">\n")

	b.WriteString("  <rdf:Description rdf:about=\"\" xmlns:pdfaid=\"" + nsPDFAID + "\">\n")
	fmt.Fprintf(&b, "   <pdfaid:part>%d</pdfaid:part>\n", m.Conformance.Part())
	fmt.Fprintf(&b, "   <pdfaid:conformance>%s</pdfaid:conformance>\n", strings.ToUpper(m.Conformance.Level()))
	b.WriteString("  </rdf:Description>\n")

	b.WriteString("  <rdf:Description rdf:about=\"\" xmlns:dc=\"http://purl.org/dc/elements/1.1/\">\n")
	b.WriteString("   <dc:format>application/pdf</dc:format>\n")
	if m.Title != "" {
		b.WriteString("   <dc:title><rdf:Alt><rdf:li xml:lang=\"x-default\">")
		writeEscaped(&b, m.Title)
		b.WriteString("</rdf:li></rdf:Alt></dc:title>\n")
	}
	if m.Author != "" {
		b.WriteString("   <dc:creator><rdf:Seq><rdf:li>")
		writeEscaped(&b, m.Author)
		b.WriteString("</rdf:li></rdf:Seq></dc:creator>\n")
	}
	if m.Subject != "" {
		b.WriteString("   <dc:description><rdf:Alt><rdf:li xml:lang=\"x-default\">")
		writeEscaped(&b, m.Subject)
		b.WriteString("</rdf:li></rdf:Alt></dc:description>\n")
	}
	b.WriteString("  </rdf:Description>\n")

	b.WriteString("  <rdf:Description rdf:about=\"\" xmlns:pdf=\"http://ns.adobe.com/pdf/1.3/\">\n")
	writeProperty(&b, "pdf:Producer", m.Producer)
	writeProperty(&b, "pdf:Keywords", m.Keywords)
	b.WriteString("  </rdf:Description>\n")

	b.WriteString("  <rdf:Description rdf:about=\"\" xmlns:xmp=\"http://ns.adobe.com/xap/1.0/\">\n")
	writeProperty(&b, "xmp:CreatorTool", m.Creator)
	writeDate(&b, "xmp:CreateDate", m.CreationDate)
	writeDate(&b, "xmp:ModifyDate", m.ModDate)
	writeDate(&b, "xmp:MetadataDate", m.ModDate)
	b.WriteString("  </rdf:Description>\n")

	b.WriteString(" </rdf:RDF>\n")
	b.WriteString("</x:xmpmeta>\n")
	b.WriteString("<?xpacket end=\"w\"?>")
	return b.Bytes()
}

func writeEscaped(b *bytes.Buffer, s string) {
	_ = xml.EscapeText(b, []byte(s))
}

func writeProperty(b *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	b.WriteString("   <" + name + ">")
	writeEscaped(b, value)
	b.WriteString("</" + name + ">\n")
}

func writeDate(b *bytes.Buffer, name string, t time.Time) {
	if t.IsZero() {
		return
	}
	writeProperty(b, name, t.Format(time.RFC3339))
}

// ParseXMPClaim reads the pdfaid part and conformance from an XMP packet.
// Both the element form and the attribute form of rdf:Description are
// accepted. The boolean is false when the packet carries no valid claim.
func ParseXMPClaim(packet []byte) (Conformance, bool) {
	dec := xml.NewDecoder(bytes.NewReader(packet))
	dec.Strict = false

	var part, level string
	var current string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ConformanceNone, false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = ""
			for _, attr := range t.Attr {
				if attr.Name.Space != nsPDFAID {
					continue
				}
				switch attr.Name.Local {
				case "part":
					part = attr.Value
				case "conformance":
					level = attr.Value
				}
			}
			if t.Name.Space == nsPDFAID {
				current = t.Name.Local
			}
		case xml.CharData:
			switch current {
			case "part":
				part += string(t)
			case "conformance":
				level += string(t)
			}
		case xml.EndElement:
			current = ""
		}
	}

	n, err := strconv.Atoi(strings.TrimSpace(part))
	if err != nil {
		return ConformanceNone, false
	}
	c := conformanceFromClaim(n, strings.ToLower(strings.TrimSpace(level)))
	return c, c != ConformanceNone
}
