package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
	"github.com/Riboost-Studio/traceability-label-bridge/internal/utils"
)

const previewTimeout = 30 * time.Second

//go:embed templates/label.html
var templateFS embed.FS

// Helper functions for the label template
var templateFuncs = template.FuncMap{
	// YYYY-MM-DD to MM/YYYY, as printed on the label
	"formatDate": func(date string) string {
		mmyyyy := utils.FormatMMYYYY(date)
		if mmyyyy == "" {
			return "______"
		}
		return mmyyyy[:2] + "/" + mmyyyy[2:]
	},
	"gs1": GS1String,
}

var labelTemplate = template.Must(
	template.New("label.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/label.html"),
)

// GS1String is the element string encoded in the label's code:
// (01) GTIN, (11) production, (17) expiry, (10) batch, (21) serial.
func GS1String(form model.LabelForm) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(01)%s", form.GTIN)
	if d := yymmdd(form.MfgDate); d != "" {
		fmt.Fprintf(&b, "(11)%s", d)
	}
	if d := yymmdd(form.ExpDate); d != "" {
		fmt.Fprintf(&b, "(17)%s", d)
	}
	fmt.Fprintf(&b, "(10)%s(21)%s", form.Batch, form.SerialNumber)
	return b.String()
}

func yymmdd(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.Format("060102")
}

func renderLabelHTML(form model.LabelForm) (string, error) {
	var htmlBuffer bytes.Buffer
	if err := labelTemplate.Execute(&htmlBuffer, form); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return htmlBuffer.String(), nil
}

// RenderLabelPreview renders the label in headless Chrome and returns a PNG.
// chromePath may be empty to let chromedp find the browser.
func RenderLabelPreview(ctx context.Context, chromePath string, form model.LabelForm) ([]byte, error) {
	html, err := renderLabelHTML(form)
	if err != nil {
		return nil, err
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
	)
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	ctx, cancel := context.WithTimeout(ctx, previewTimeout)
	defer cancel()
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	cdpCtx, cdpCancel := chromedp.NewContext(allocCtx)
	defer cdpCancel()

	var pngBytes []byte
	err = chromedp.Run(cdpCtx,
		chromedp.Navigate("data:text/html,"+urlEncode(html)),
		chromedp.Sleep(300*time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, err := page.CaptureScreenshot().
				WithCaptureBeyondViewport(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pngBytes = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed generating preview: %w", err)
	}
	log.Printf("[preview] Rendered %d bytes for GTIN %s", len(pngBytes), form.GTIN)
	return pngBytes, nil
}

// urlEncode escapes html for a data URL.
func urlEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
