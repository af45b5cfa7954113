package pdfa

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultProducer is recorded in the XMP metadata of converted documents.
const DefaultProducer = "pdfa-convert"

var disableConfigDir sync.Once

// Library owns the parser configuration shared by documents, validators and
// converters. It is safe for concurrent use once created.
type Library struct {
	strict   bool
	producer string
	logger   *slog.Logger
	now      func() time.Time
	closed   atomic.Bool
}

// Option configures a Library.
type Option func(*Library)

// WithValidationMode switches the parser to strict PDF syntax validation.
func WithValidationMode(strict bool) Option {
	return func(l *Library) { l.strict = strict }
}

// WithProducer sets the producer name written to converted documents.
func WithProducer(producer string) Option {
	return func(l *Library) {
		if producer != "" {
			l.producer = producer
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// withClock replaces the time source used for metadata dates.
func withClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// NewLibrary initializes the library. pdfcpu's on-disk configuration
// directory is disabled so the process never writes to the user's home.
func NewLibrary(opts ...Option) (*Library, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	l := &Library{
		producer: DefaultProducer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Close releases the library. Documents opened earlier stay readable but no
// new operation is accepted.
func (l *Library) Close() error {
	if l == nil {
		return nil
	}
	l.closed.Store(true)
	return nil
}

func (l *Library) usable(op string) error {
	if l == nil || l.closed.Load() {
		return errClosed(op)
	}
	return nil
}

func (l *Library) configuration(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if l.strict {
		conf.ValidationMode = model.ValidationStrict
	}
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	return conf
}

// Open reads the whole stream and parses it as a PDF document.
func (l *Library) Open(r io.ReadSeeker, password string) (*Document, error) {
	if err := l.usable("open"); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errArgument("open", "stream cannot be nil")
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, &Error{Code: CodeIO, Op: "open", Message: "failed to rewind stream", Cause: err}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Code: CodeIO, Op: "open", Message: "failed to read stream", Cause: err}
	}
	return l.openBytes(data, password)
}

func (l *Library) openBytes(data []byte, password string) (*Document, error) {
	ctx, form, err := l.readContext(data, password)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		lib:      l,
		raw:      data,
		password: password,
		ctx:      ctx,
		form:     form,
	}
	doc.claim = readClaim(ctx)

	l.logger.Debug("opened document",
		"bytes", len(data),
		"pages", ctx.PageCount,
		"encrypted", doc.Encrypted(),
		"claim", doc.claim.String())
	return doc, nil
}

// readContext parses data with pdfcpu and validates the object graph.
// Validation removes an AcroForm without fields, so the form entries are
// read before it runs.
func (l *Library) readContext(data []byte, password string) (*model.Context, formFeatures, error) {
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return nil, formFeatures{}, &Error{Code: CodeCorrupt, Op: "open", Message: "missing PDF header"}
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), l.configuration(password))
	if err != nil {
		return nil, formFeatures{}, classifyReadError(err)
	}
	form := readFormFeatures(ctx)
	if err := api.ValidateContext(ctx); err != nil {
		return nil, formFeatures{}, &Error{Code: CodeCorrupt, Op: "open", Message: "document structure is invalid", Cause: err}
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, formFeatures{}, &Error{Code: CodeCorrupt, Op: "open", Message: "failed to count pages", Cause: err}
	}
	return ctx, form, nil
}

// decryptedCopy serializes data without its encryption. ledongthuc/pdf
// cannot read every security handler pdfcpu supports, AES-256 among them.
func (l *Library) decryptedCopy(data []byte, password string) ([]byte, error) {
	ctx, _, err := l.readContext(data, password)
	if err != nil {
		return nil, err
	}
	dropEncryption(ctx)

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, &Error{Code: CodeGeneric, Op: "decrypt", Message: "failed to write decrypted copy", Cause: err}
	}
	return buf.Bytes(), nil
}

// dropEncryption makes the next write of ctx produce an unencrypted file.
func dropEncryption(ctx *model.Context) {
	ctx.Cmd = model.DECRYPT
	ctx.Encrypt = nil
	ctx.EncKey = nil
}

func classifyReadError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password"):
		return &Error{Code: CodePassword, Op: "open", Message: "the document is encrypted and the password is missing or wrong", Cause: err}
	case strings.Contains(msg, "unsupported"):
		return &Error{Code: CodeUnsupported, Op: "open", Message: "the document uses an unsupported feature", Cause: err}
	default:
		return &Error{Code: CodeCorrupt, Op: "open", Message: "failed to parse document", Cause: err}
	}
}

func (l *Library) String() string {
	return fmt.Sprintf("Library{strict: %t, producer: %s}", l.strict, l.producer)
}
