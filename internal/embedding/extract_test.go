package embedding

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_PlainTextPassesThrough(t *testing.T) {
	text, err := Extract([]byte("hello world"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestExtract_UnsupportedTypeErrors(t *testing.T) {
	_, err := Extract([]byte("whatever"), "application/x-unknown")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestExtract_HTMLConvertsToMarkdown(t *testing.T) {
	text, err := Extract([]byte("<h1>Title</h1><p>body</p>"), "text/html")
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "body")
}

func TestExtract_DOCXExtractsRunText(t *testing.T) {
	content := buildFakeDocx(t, "hello from word")
	text, err := Extract(content, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.NoError(t, err)
	assert.Contains(t, text, "hello")
	assert.Contains(t, text, "word")
}

func TestExtract_ExcelExtensionInvalidBytesErrors(t *testing.T) {
	_, err := Extract([]byte{}, "bogus.xlsx")
	// an empty byte slice isn't a valid xlsx zip, so this should error rather
	// than panic.
	assert.Error(t, err)
}

// buildFakeDocx constructs a minimal zip with a word/document.xml part
// containing one <w:t> run, enough to exercise extractDOCX's zip+regex path
// without a real OOXML writer dependency.
func buildFakeDocx(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_DOCXMissingPartErrors(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract(buf.Bytes(), ".docx")
	assert.Error(t, err)
}

func TestExtract_TypeNormalizationIsCaseInsensitive(t *testing.T) {
	text, err := Extract([]byte("CSV,DATA"), strings.ToUpper("text/csv"))
	require.NoError(t, err)
	assert.Equal(t, "CSV,DATA", text)
}
