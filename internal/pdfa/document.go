package pdfa

import (
	"bytes"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Document is an opened PDF. The structural model comes from pdfcpu; font
// inspection reads the same bytes through ledongthuc/pdf.
type Document struct {
	lib      *Library
	raw      []byte
	password string
	ctx      *model.Context
	claim    Conformance
	form     formFeatures

	fontOnce   sync.Once
	fontReader *pdf.Reader
	fontErr    error

	closed bool
}

// Close releases the document. It is safe on a nil document and when called
// more than once.
func (d *Document) Close() error {
	if d == nil || d.closed {
		return nil
	}
	d.closed = true
	d.ctx = nil
	d.fontReader = nil
	d.raw = nil
	return nil
}

// Conformance returns the PDF/A conformance the document claims in its XMP
// metadata, or ConformanceNone.
func (d *Document) Conformance() Conformance {
	if d == nil {
		return ConformanceNone
	}
	return d.claim
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	if d == nil || d.ctx == nil {
		return 0
	}
	return d.ctx.PageCount
}

// Version returns the PDF header version, e.g. "1.7".
func (d *Document) Version() string {
	if d == nil || d.ctx == nil || d.ctx.HeaderVersion == nil {
		return ""
	}
	return d.ctx.HeaderVersion.String()
}

// Encrypted reports whether the file carries an encryption dictionary.
func (d *Document) Encrypted() bool {
	return d != nil && d.ctx != nil && d.ctx.Encrypt != nil
}

// Size returns the length of the document's byte representation.
func (d *Document) Size() int {
	if d == nil {
		return 0
	}
	return len(d.raw)
}

// Bytes returns the document's byte representation. The slice must not be modified.
func (d *Document) Bytes() []byte {
	if d == nil {
		return nil
	}
	return d.raw
}

func (d *Document) usable(op string) error {
	if d == nil || d.closed {
		return errArgument(op, "document is nil or closed")
	}
	return nil
}

// fonts lazily opens the ledongthuc reader over the document bytes. An
// encrypted document is read through a decrypted copy.
func (d *Document) fonts() (*pdf.Reader, error) {
	d.fontOnce.Do(func() {
		data, password := d.raw, d.password
		if d.Encrypted() {
			plain, err := d.lib.decryptedCopy(d.raw, d.password)
			if err != nil {
				d.fontErr = err
				return
			}
			data, password = plain, ""
		}
		d.fontReader, d.fontErr = openFontReader(data, password)
	})
	return d.fontReader, d.fontErr
}

func openFontReader(data []byte, password string) (r *pdf.Reader, err error) {
	defer func() {
		// ledongthuc/pdf panics on some malformed inputs
		if rec := recover(); rec != nil {
			r = nil
			err = &Error{Code: CodeUnsupported, Op: "inspect fonts", Message: "font reader failed"}
		}
	}()

	ra := bytes.NewReader(data)
	if password == "" {
		return pdf.NewReader(ra, int64(len(data)))
	}
	tried := false
	return pdf.NewReaderEncrypted(ra, int64(len(data)), func() string {
		if tried {
			return ""
		}
		tried = true
		return password
	})
}

// formFeatures are the interactive form entries of the catalog as found in
// the file.
type formFeatures struct {
	xfa             bool
	needAppearances bool
}

func readFormFeatures(ctx *model.Context) formFeatures {
	catalog, err := ctx.Catalog()
	if err != nil || catalog == nil {
		return formFeatures{}
	}
	form := dictEntry(ctx, catalog, "AcroForm")
	if form == nil {
		return formFeatures{}
	}
	var f formFeatures
	if obj, found := form.Find("XFA"); found && obj != nil {
		f.xfa = true
	}
	if obj, found := form.Find("NeedAppearances"); found && obj != nil {
		if need, err := ctx.DereferenceBoolean(obj, model.V10); err == nil && need != nil {
			f.needAppearances = need.Value()
		}
	}
	return f
}

// readClaim extracts the pdfaid claim from the catalog's metadata stream.
func readClaim(ctx *model.Context) Conformance {
	packet, ok := metadataPacket(ctx)
	if !ok {
		return ConformanceNone
	}
	claim, _ := ParseXMPClaim(packet)
	return claim
}

// metadataPacket returns the decoded catalog metadata stream.
func metadataPacket(ctx *model.Context) ([]byte, bool) {
	catalog, err := ctx.Catalog()
	if err != nil || catalog == nil {
		return nil, false
	}
	obj, found := catalog.Find("Metadata")
	if !found || obj == nil {
		return nil, false
	}
	return streamContent(ctx, obj)
}

// streamContent dereferences obj as a stream and returns its decoded bytes.
func streamContent(ctx *model.Context, obj types.Object) ([]byte, bool) {
	sd, _, err := ctx.DereferenceStreamDict(obj)
	if err != nil || sd == nil {
		return nil, false
	}
	if sd.Content == nil {
		if err := sd.Decode(); err != nil {
			return nil, false
		}
	}
	return sd.Content, true
}
