// Package pdftest builds small PDF files for tests. The files are written
// object by object with a correct cross-reference table so that strict
// parsers accept them.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Builder collects numbered objects and serializes them.
type Builder struct {
	objects map[int][]byte
	next    int
	version string
}

// NewBuilder returns an empty builder writing the given header version.
func NewBuilder(version string) *Builder {
	if version == "" {
		version = "1.7"
	}
	return &Builder{objects: map[int][]byte{}, next: 1, version: version}
}

// Reserve allocates an object number to be filled with Set.
func (b *Builder) Reserve() int {
	n := b.next
	b.next++
	return n
}

// Set stores the body of object n.
func (b *Builder) Set(n int, body string) {
	b.objects[n] = []byte(body)
}

// Add stores body as a new object and returns its number.
func (b *Builder) Add(body string) int {
	n := b.Reserve()
	b.Set(n, body)
	return n
}

// AddStream stores a stream object with an exact /Length.
func (b *Builder) AddStream(dict string, content []byte) int {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", dict, len(content))
	buf.Write(content)
	buf.WriteString("\nendstream")
	n := b.Reserve()
	b.objects[n] = buf.Bytes()
	return n
}

// Bytes serializes the file. trailer holds extra trailer entries such as
// /Info or /ID.
func (b *Builder) Bytes(root int, trailer string) []byte {
	var out bytes.Buffer
	fmt.Fprintf(&out, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.version)

	numbers := make([]int, 0, len(b.objects))
	for n := range b.objects {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	offsets := make([]int, b.next)
	for _, n := range numbers {
		offsets[n] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n", n)
		out.Write(b.objects[n])
		out.WriteString("\nendobj\n")
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", b.next)
	out.WriteString("0000000000 65535 f \n")
	for n := 1; n < b.next; n++ {
		if _, ok := b.objects[n]; ok {
			fmt.Fprintf(&out, "%010d 00000 n \n", offsets[n])
		} else {
			out.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root %d 0 R %s>>\nstartxref\n%d\n%%%%EOF\n", b.next, root, trailer, xref)
	return out.Bytes()
}

// Options describe the features of a generated document.
type Options struct {
	// Pages is the page count, at least 1
	Pages int
	// Font is the BaseFont of a non-embedded Type1 font used on every page
	Font string
	// FontEncoding sets /Encoding on the font when non-empty
	FontEncoding string
	// OpenAction is JavaScript run when the document opens
	OpenAction string
	// Annotation is the subtype of an annotation placed on the first page
	Annotation string
	// AnnotationJavaScript attaches a JavaScript action to that annotation
	AnnotationJavaScript bool
	// Transparency adds a semi-transparent graphics state to the first page
	Transparency bool
	// XFA adds an AcroForm with an XFA entry
	XFA bool
	// NeedAppearances adds an AcroForm with NeedAppearances true
	NeedAppearances bool
	// OptionalContent adds an OCProperties dictionary
	OptionalContent bool
	// Attachment embeds a file with the given MIME subtype
	Attachment string
	// Metadata is stored as the catalog's XMP metadata stream
	Metadata []byte
	// OutputProfile is stored as a GTS_PDFA1 output intent profile
	OutputProfile []byte
	// FileID adds a trailer /ID
	FileID bool
	// Title is written to the information dictionary
	Title string
}

// Build renders a document with the requested features.
func Build(o Options) []byte {
	if o.Pages < 1 {
		o.Pages = 1
	}
	b := NewBuilder("1.7")
	catalog := b.Reserve()
	pagesRef := b.Reserve()

	var catalogExtra []string

	fontRes := ""
	if o.Font != "" {
		enc := ""
		if o.FontEncoding != "" {
			enc = " /Encoding /" + o.FontEncoding
		}
		font := b.Add(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s%s >>", o.Font, enc))
		fontRes = fmt.Sprintf(" /Font << /F1 %d 0 R >>", font)
	}

	var content string
	if o.Font != "" {
		content = "BT /F1 12 Tf 72 720 Td (Hello) Tj ET"
	} else {
		content = "0 0 m 100 100 l S"
	}

	kids := make([]string, 0, o.Pages)
	for i := 0; i < o.Pages; i++ {
		stream := b.AddStream("", []byte(content))
		resources := "<< " + fontRes
		extra := ""
		if i == 0 {
			if o.Transparency {
				gs := b.Add("<< /Type /ExtGState /ca 0.5 >>")
				resources += fmt.Sprintf(" /ExtGState << /GS1 %d 0 R >>", gs)
			}
			if o.Annotation != "" {
				action := ""
				if o.AnnotationJavaScript {
					js := b.Add("<< /S /JavaScript /JS (app.alert\\(1\\)) >>")
					action = fmt.Sprintf(" /A %d 0 R", js)
				}
				switch o.Annotation {
				case "Movie":
					action += " /Movie << /F (clip.mpg) >>"
				case "FileAttachment":
					action += " /FS (file.bin)"
				}
				annot := b.Add(fmt.Sprintf("<< /Type /Annot /Subtype /%s /Rect [0 0 50 50]%s >>", o.Annotation, action))
				extra = fmt.Sprintf(" /Annots [%d 0 R]", annot)
			}
		}
		resources += " >>"
		p := b.Add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources %s /Contents %d 0 R%s >>",
			pagesRef, resources, stream, extra))
		kids = append(kids, fmt.Sprintf("%d 0 R", p))
	}
	b.Set(pagesRef, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), o.Pages))

	if o.OpenAction != "" {
		js := b.Add(fmt.Sprintf("<< /S /JavaScript /JS (%s) >>", escape(o.OpenAction)))
		catalogExtra = append(catalogExtra, fmt.Sprintf("/OpenAction %d 0 R", js))
	}
	if o.XFA || o.NeedAppearances {
		form := "<< /Fields []"
		if o.XFA {
			xfa := b.AddStream("", []byte("<xdp:xdp xmlns:xdp=\"http://ns.adobe.com/xdp/\"></xdp:xdp>"))
			form += fmt.Sprintf(" /XFA %d 0 R", xfa)
		}
		if o.NeedAppearances {
			form += " /NeedAppearances true"
		}
		form += " >>"
		catalogExtra = append(catalogExtra, fmt.Sprintf("/AcroForm %d 0 R", b.Add(form)))
	}
	if o.OptionalContent {
		ocg := b.Add("<< /Type /OCG /Name (Layer) >>")
		catalogExtra = append(catalogExtra, fmt.Sprintf("/OCProperties << /OCGs [%d 0 R] /D << /ON [%d 0 R] >> >>", ocg, ocg))
	}
	if o.Attachment != "" {
		file := b.AddStream("/Type /EmbeddedFile /Subtype /"+strings.ReplaceAll(o.Attachment, "/", "#2F"), []byte("attachment"))
		spec := b.Add(fmt.Sprintf("<< /Type /Filespec /F (file.bin) /UF (file.bin) /EF << /F %d 0 R >> >>", file))
		catalogExtra = append(catalogExtra, fmt.Sprintf("/Names << /EmbeddedFiles << /Names [(file.bin) %d 0 R] >> >>", spec))
	}
	if o.Metadata != nil {
		meta := b.AddStream("/Type /Metadata /Subtype /XML", o.Metadata)
		catalogExtra = append(catalogExtra, fmt.Sprintf("/Metadata %d 0 R", meta))
	}
	if o.OutputProfile != nil {
		profile := b.AddStream("/N 3", o.OutputProfile)
		intent := b.Add(fmt.Sprintf("<< /Type /OutputIntent /S /GTS_PDFA1 /OutputConditionIdentifier (sRGB IEC61966-2.1) /DestOutputProfile %d 0 R >>", profile))
		catalogExtra = append(catalogExtra, fmt.Sprintf("/OutputIntents [%d 0 R]", intent))
	}

	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R %s >>", pagesRef, strings.Join(catalogExtra, " ")))

	var trailer []string
	if o.Title != "" {
		info := b.Add(fmt.Sprintf("<< /Title (%s) /Producer (pdftest) >>", escape(o.Title)))
		trailer = append(trailer, fmt.Sprintf("/Info %d 0 R", info))
	}
	if o.FileID {
		trailer = append(trailer, "/ID [<0123456789abcdef0123456789abcdef> <0123456789abcdef0123456789abcdef>]")
	}
	t := strings.Join(trailer, " ")
	if t != "" {
		t += " "
	}
	return b.Bytes(catalog, t)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// WriteFile builds a document into dir/name and returns its path.
func WriteFile(t testing.TB, dir, name string, o Options) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(o), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// Encrypt protects data with AES-256 under the given passwords. All
// permissions are granted so the user password is enough to process the file.
func Encrypt(t testing.TB, data []byte, userPW, ownerPW string) []byte {
	t.Helper()
	conf := model.NewAESConfiguration(userPW, ownerPW, 256)
	conf.Permissions = model.PermissionsAll
	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(data), &out, conf); err != nil {
		t.Fatalf("encrypt fixture: %v", err)
	}
	return out.Bytes()
}
