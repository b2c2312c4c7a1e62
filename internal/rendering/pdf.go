package rendering

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/jonathan/script-generator/internal/fetch"
)

// DefaultPDFTimeout bounds a single PDF print.
const DefaultPDFTimeout = 60 * time.Second

// ChromePrinter prints HTML pages to PDF with headless Chrome.
// Requires Chrome/Chromium to be installed.
type ChromePrinter struct {
	Timeout time.Duration
	Verbose bool
}

// NewChromePrinter returns a printer with the default timeout.
func NewChromePrinter(verbose bool) *ChromePrinter {
	return &ChromePrinter{Timeout: DefaultPDFTimeout, Verbose: verbose}
}

// PrintPDF loads html into a blank tab and prints it.
func (p *ChromePrinter) PrintPDF(ctx context.Context, html []byte) ([]byte, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}

	browserCtx, cancel := fetch.NewHeadlessContext(ctx)
	defer cancel()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("pdf printing failed: %w", err)
	}

	if p.Verbose {
		log.Printf("[render] printed PDF: %d bytes", len(pdf))
	}
	return pdf, nil
}
