package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDF renders html to a PDF document in headless Chrome
func PDF(ctx context.Context, html []byte) ([]byte, error) {
	var data []byte
	err := capture(ctx, html, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		data, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("printing PDF: %w", err)
	}
	return data, nil
}

// PNG renders html to a full-page screenshot in headless Chrome
func PNG(ctx context.Context, html []byte) ([]byte, error) {
	var data []byte
	if err := capture(ctx, html, chromedp.FullScreenshot(&data, 100)); err != nil {
		return nil, fmt.Errorf("taking screenshot: %w", err)
	}
	return data, nil
}

func capture(ctx context.Context, html []byte, action chromedp.Action) error {
	tmp, err := os.CreateTemp("", "meterlog-report-*.html")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(html); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	path, err := filepath.Abs(tmp.Name())
	if err != nil {
		return fmt.Errorf("resolving temp file: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, 60*time.Second)
	defer cancel()

	return chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+filepath.ToSlash(path)),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		action,
	)
}
