package pdfa

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildXMP_ClaimRoundTrip(t *testing.T) {
	for _, c := range TargetableConformances() {
		t.Run(c.String(), func(t *testing.T) {
			packet := BuildXMP(Metadata{Conformance: c})
			got, ok := ParseXMPClaim(packet)
			require.True(t, ok)
			assert.Equal(t, c, got)
		})
	}
}

func TestBuildXMP_WellFormed(t *testing.T) {
	m := Metadata{
		Conformance:  PDFA2B,
		Title:        "Q3 <Report> & Summary",
		Author:       "Finance",
		Subject:      "Quarterly numbers",
		Keywords:     "finance, q3",
		Creator:      "Writer",
		Producer:     "pdfa-convert",
		CreationDate: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		ModDate:      time.Date(2024, 5, 2, 11, 30, 0, 0, time.UTC),
	}
	packet := BuildXMP(m)

	dec := xml.NewDecoder(bytes.NewReader(packet))
	var texts []string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			if s := strings.TrimSpace(string(cd)); s != "" {
				texts = append(texts, s)
			}
		}
	}

	want := []string{
		"2", "B",
		"application/pdf",
		"Q3 <Report> & Summary",
		"Finance",
		"Quarterly numbers",
		"pdfa-convert",
		"finance, q3",
		"Writer",
		"2024-05-01T10:00:00Z",
		"2024-05-02T11:30:00Z",
		"2024-05-02T11:30:00Z",
	}
	if diff := cmp.Diff(want, texts); diff != "" {
		t.Errorf("XMP text content mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildXMP_PacketHeader(t *testing.T) {
	packet := BuildXMP(Metadata{Conformance: PDFA1B})
	header := []byte("<?xpacket begin=\"\xef\xbb\xbf\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>")
	assert.True(t, bytes.HasPrefix(packet, header), "packet starts with %q", packet[:min(len(packet), 60)])
	assert.True(t, bytes.HasSuffix(packet, []byte("<?xpacket end=\"w\"?>")))
}

func TestParseXMPClaim_AttributeForm(t *testing.T) {
	packet := []byte(`<x:xmpmeta xmlns:x="adobe:ns:meta/">
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
<rdf:Description rdf:about="" xmlns:pdfaid="http://www.aiim.org/pdfa/ns/id/" pdfaid:part="3" pdfaid:conformance="U"/>
</rdf:RDF>
</x:xmpmeta>`)
	got, ok := ParseXMPClaim(packet)
	require.True(t, ok)
	assert.Equal(t, PDFA3U, got)
}

func TestParseXMPClaim_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"no claim":     `<x:xmpmeta xmlns:x="adobe:ns:meta/"/>`,
		"bad part":     `<r xmlns:pdfaid="http://www.aiim.org/pdfa/ns/id/"><pdfaid:part>x</pdfaid:part></r>`,
		"unknown part": `<r xmlns:pdfaid="http://www.aiim.org/pdfa/ns/id/"><pdfaid:part>4</pdfaid:part><pdfaid:conformance>B</pdfaid:conformance></r>`,
		"no level":     `<r xmlns:pdfaid="http://www.aiim.org/pdfa/ns/id/"><pdfaid:part>2</pdfaid:part></r>`,
		"other ns":     `<r xmlns:p="urn:other"><p:part>2</p:part><p:conformance>B</p:conformance></r>`,
	}
	for name, packet := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseXMPClaim([]byte(packet))
			assert.False(t, ok)
			assert.Equal(t, ConformanceNone, got)
		})
	}
}
