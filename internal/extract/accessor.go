package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpulib "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageContent holds the extraction primitives for one page: the plain text
// stream and the detected tables as grids of cell strings.
type PageContent struct {
	Index  int
	Text   string
	Tables [][][]string
}

// Document is the accessor's view of one PDF: per-page content in page
// order, plus whether the file carries image streams (used to tell a
// scanned document from a genuinely empty one).
type Document struct {
	Pages     []PageContent
	PageCount int
	HasImages bool
	Warnings  []string
}

// Accessor opens a PDF byte stream and exposes per-page text and tables.
// It is a pure extraction primitive with no domain knowledge and no I/O
// beyond the supplied bytes.
type Accessor struct {
	maxFileSize int64
}

// NewAccessor creates an accessor with the given file size limit.
func NewAccessor(maxFileSize int64) *Accessor {
	return &Accessor{maxFileSize: maxFileSize}
}

// ReadDocument parses a PDF from memory. It fails with ErrUnreadableDocument
// when the bytes are not a valid PDF container, and with ErrNoExtractableText
// when every page yields empty text and empty tables (the image-only PDF
// signal).
func (a *Accessor) ReadDocument(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnreadableDocument)
	}
	if a.maxFileSize > 0 && int64(len(data)) > a.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d",
			ErrUnreadableDocument, len(data), a.maxFileSize)
	}

	doc := &Document{}

	// Container-level validation first. pdfcpu rejects streams that are not
	// PDF at all and repairs minor damage in relaxed mode.
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	doc.PageCount = ctx.PageCount
	doc.HasImages = detectImageStreams(ctx)

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		pc := a.readPage(reader, pageNum, doc)
		doc.Pages = append(doc.Pages, pc)
	}

	if a.isEmpty(doc) {
		if doc.HasImages {
			return nil, fmt.Errorf("%w: document appears to be scanned images", ErrNoExtractableText)
		}
		return nil, fmt.Errorf("%w: document has no text or table content", ErrNoExtractableText)
	}
	return doc, nil
}

// readPage extracts one page's text and tables, never panicking outward:
// malformed content streams degrade to an empty page plus a warning.
func (a *Accessor) readPage(reader *pdf.Reader, pageNum int, doc *Document) (pc PageContent) {
	pc = PageContent{Index: pageNum - 1}
	defer func() {
		if r := recover(); r != nil {
			doc.Warnings = append(doc.Warnings,
				fmt.Sprintf("page %d: content stream panic: %v", pageNum, r))
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return pc
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		doc.Warnings = append(doc.Warnings,
			fmt.Sprintf("page %d: text extraction failed: %v", pageNum, err))
	} else {
		pc.Text = text
	}

	pc.Tables = buildTables(pageSpans(page))
	return pc
}

// pageSpans converts the page's positioned text runs into spans for grid
// reconstruction.
func pageSpans(page pdf.Page) []textSpan {
	content := page.Content()
	spans := make([]textSpan, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		spans = append(spans, textSpan{x: t.X, y: t.Y, w: t.W, s: t.S})
	}
	return spans
}

func (a *Accessor) isEmpty(doc *Document) bool {
	for _, p := range doc.Pages {
		if strings.TrimSpace(p.Text) != "" || len(p.Tables) > 0 {
			return false
		}
	}
	return true
}

// detectImageStreams reports whether any page references image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize == nil {
		return false
	}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		if len(pdfcpulib.ImageObjNrs(ctx, pageNr)) > 0 {
			return true
		}
	}
	return false
}
