package source

import (
	"context"
	"fmt"
	"io"

	"github.com/gen2brain/go-fitz"
	"github.com/ivlev/framectl/internal/frame"
)

const defaultDPI = 72

// PDFSource рендерит по кадру на страницу.
type PDFSource struct {
	doc  *fitz.Document
	dpi  int
	page int
}

func NewPDFSource(path string, dpi int) (*PDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return &PDFSource{doc: doc, dpi: dpi}, nil
}

func (p *PDFSource) FrameCount() int {
	return p.doc.NumPage()
}

func (p *PDFSource) Next(context.Context) (*frame.Frame, error) {
	if p.page >= p.doc.NumPage() {
		return nil, io.EOF
	}
	img, err := p.doc.ImageDPI(p.page, float64(p.dpi))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", p.page, err)
	}
	p.page++
	return frame.FromImage(img), nil
}

func (p *PDFSource) Close() error {
	return p.doc.Close()
}
