package embedding

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFileType is returned by Extract for a MIME type or
// extension this pipeline has no extraction path for.
var ErrUnsupportedFileType = fmt.Errorf("embedding: unsupported file type")

// Extract converts a file's raw bytes to plain text (or, for structured
// formats, a markdown/JSON rendering of it) based on fileType, which may be
// a MIME type or a bare extension. Dispatch order mirrors the original
// convert_to_text: PDF, Word, Excel, plain text, PowerPoint, HTML, else
// unsupported.
func Extract(content []byte, fileType string) (string, error) {
	ft := strings.ToLower(strings.TrimSpace(fileType))

	switch {
	case strings.Contains(ft, "application/pdf") || strings.HasSuffix(ft, ".pdf"):
		return extractPDF(content)

	case ft == "application/msword" ||
		ft == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" ||
		strings.HasSuffix(ft, ".docx") || strings.HasSuffix(ft, ".doc") || ft == "word":
		return extractDOCX(content)

	case ft == "application/vnd.ms-excel" ||
		ft == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" ||
		strings.HasSuffix(ft, ".xlsx") || strings.HasSuffix(ft, ".xls") || ft == "excel":
		return extractExcel(content)

	case !strings.Contains(ft, "html") && containsAny(ft, "text/plain", "text/csv", "text/markdown", "text/tab-separated-values", "text/", "txt", "csv", "md", "tsv"):
		return string(content), nil

	case containsAny(ft, "application/vnd.ms-powerpoint", "application/vnd.openxmlformats-officedocument.presentationml.presentation", "powerpoint", "ppt", "pptx"):
		return extractPPTX(content)

	case strings.Contains(ft, "text/html") || strings.Contains(ft, "html"):
		return extractHTML(content)

	default:
		return "", ErrUnsupportedFileType
	}
}

func containsAny(s string, candidates ...string) bool {
	for _, c := range candidates {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

func extractHTML(content []byte) (string, error) {
	md, err := htmltomarkdown.ConvertString(string(content))
	if err != nil {
		return "", fmt.Errorf("html to markdown: %w", err)
	}
	return md, nil
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var buf bytes.Buffer
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n\n")
	}
	return buf.String(), nil
}

func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open excel: %w", err)
	}
	defer f.Close()

	result := make(map[string][]map[string]string)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		header := rows[0]
		records := make([]map[string]string, 0, len(rows)-1)
		for _, row := range rows[1:] {
			record := make(map[string]string, len(header))
			for i, col := range header {
				if i < len(row) {
					record[col] = row[i]
				} else {
					record[col] = ""
				}
			}
			records = append(records, record)
		}
		result[sheet] = records
	}
	return marshalSheets(result), nil
}

// extractDOCX pulls the plain-text runs out of word/document.xml, the
// OOXML part every .docx package carries. No pack dependency covers Word
// extraction (see DESIGN.md), so this walks the zip container with the
// standard library.
func extractDOCX(content []byte) (string, error) {
	part, err := readZipPart(content, "word/document.xml")
	if err != nil {
		return "", fmt.Errorf("extract docx: %w", err)
	}
	text := wordTextPattern.FindAllStringSubmatch(part, -1)
	var buf strings.Builder
	for _, m := range text {
		buf.WriteString(m[1])
		buf.WriteString(" ")
	}
	return strings.TrimSpace(buf.String()), nil
}

// extractPPTX concatenates the text runs from every slideN.xml part in the
// order the parts appear in the zip archive, same rationale as extractDOCX.
func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract pptx: %w", err)
	}

	var buf strings.Builder
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		buf.WriteString(fmt.Sprintf("## %s\n\n", f.Name))
		for _, m := range wordTextPattern.FindAllStringSubmatch(string(raw), -1) {
			buf.WriteString(m[1])
			buf.WriteString(" ")
		}
		buf.WriteString("\n\n")
	}
	return strings.TrimSpace(buf.String()), nil
}

// wordTextPattern matches the text payload of <w:t>/<a:t> runs used by
// Word and PowerPoint OOXML parts respectively.
var wordTextPattern = regexp.MustCompile(`<(?:w|a):t[^>]*>([^<]*)</(?:w|a):t>`)

func readZipPart(content []byte, name string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return "", err
			}
			defer rc.Close()
			raw, err := io.ReadAll(rc)
			if err != nil {
				return "", err
			}
			return string(raw), nil
		}
	}
	return "", fmt.Errorf("part %s not found", name)
}

// marshalSheets renders the per-sheet records as JSON, matching the
// original's Excel-to-JSON conversion.
func marshalSheets(sheets map[string][]map[string]string) string {
	out, err := json.Marshal(sheets)
	if err != nil {
		return "{}"
	}
	return string(out)
}
