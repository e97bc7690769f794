package ingest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/recallkit/recallkit/internal/design"
)

// DefaultOCRDensity is the printable-character density per page below
// which extraction falls back to OCR. A typical full page holds around
// 1800 characters; 1% of that signals a scanned page.
const DefaultOCRDensity = 0.01

// expectedPageChars approximates the character count of a full text page.
const expectedPageChars = 1800

// ExtractOptions tunes document extraction.
type ExtractOptions struct {
	// OCRDensity overrides DefaultOCRDensity when positive.
	OCRDensity float64
}

// Extract resolves the raw text of a knowledge source. Document sources
// get direct text extraction first and per-page OCR when the extracted
// text is too sparse to be real content.
func Extract(src design.KnowledgeSource, opts ExtractOptions) (string, error) {
	switch src.Kind {
	case design.SourceInline:
		return src.Content, nil
	case design.SourceFile:
		data, err := os.ReadFile(src.Path) // #nosec G304
		if err != nil {
			return "", fmt.Errorf("read source file: %w", err)
		}
		return string(data), nil
	case design.SourceDocument:
		if strings.EqualFold(filepath.Ext(src.Path), ".pdf") {
			return extractPDF(src.Path, opts)
		}
		data, err := os.ReadFile(src.Path) // #nosec G304
		if err != nil {
			return "", fmt.Errorf("read document: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("source kind %q is not ingestable", src.Kind)
	}
}

// extractPDF pulls text page by page, running OCR on pages whose
// printable density falls below the threshold.
func extractPDF(path string, opts ExtractOptions) (string, error) {
	threshold := opts.OCRDensity
	if threshold <= 0 {
		threshold = DefaultOCRDensity
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}

		if printableDensity(text) < threshold {
			ocrText, ocrErr := ocrPage(path, i)
			if ocrErr != nil {
				return "", fmt.Errorf("page %d has no extractable text and OCR failed: %w", i, ocrErr)
			}
			text = ocrText
		}

		pages = append(pages, text)
	}

	return strings.Join(pages, "\n\n"), nil
}

// printableDensity is the ratio of printable non-space characters to the
// expected length of a full page.
func printableDensity(text string) float64 {
	var printable int
	for _, r := range text {
		if unicode.IsPrint(r) && !unicode.IsSpace(r) {
			printable++
		}
	}
	return float64(printable) / expectedPageChars
}

// ocrPage rasterizes one PDF page and runs it through tesseract. Both
// binaries are looked up on PATH; a missing one makes the source fail,
// which the build pipeline logs and skips.
func ocrPage(pdfPath string, page int) (string, error) {
	pdftoppm, err := exec.LookPath("pdftoppm")
	if err != nil {
		return "", fmt.Errorf("pdftoppm not found on PATH: %w", err)
	}
	tesseract, err := exec.LookPath("tesseract")
	if err != nil {
		return "", fmt.Errorf("tesseract not found on PATH: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "recall-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	pageArg := strconv.Itoa(page)
	if out, err := exec.Command(pdftoppm, "-png", "-r", "300", "-f", pageArg, "-l", pageArg, pdfPath, prefix).CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %v: %s", err, out)
	}

	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no page image produced")
	}

	out, err := exec.Command(tesseract, matches[0], "stdout").Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return string(out), nil
}
