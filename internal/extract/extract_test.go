package extract_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/genquiz/internal/errors"
	"github.com/victornm/genquiz/internal/extract"
)

func TestText_NotAPDF(t *testing.T) {
	_, err := extract.Text([]byte("just some plain text, definitely not a document"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)
}

func TestText_TruncatedPDF(t *testing.T) {
	// Valid header but nothing else: parsing must fail, not panic.
	_, err := extract.Text([]byte("%PDF-1.7\n"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)
}

func TestText_EmptyInput(t *testing.T) {
	_, err := extract.Text(nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)
}

func TestText_ShortDocument(t *testing.T) {
	// A well-formed PDF whose whole text is two characters.
	_, err := extract.Text(minimalPDF("Hi"))
	require.Error(t, err)

	e := errors.Convert(err)
	assert.Equal(t, errors.CodeInvalidArgument, e.Code)
	assert.Contains(t, e.Message, "too short")
}

func TestText_ExtractsDocumentText(t *testing.T) {
	const line = "The Go programming language was designed at Google in 2007 by Robert Griesemer, Rob Pike, and Ken Thompson."

	text, err := extract.Text(minimalPDF(line))
	require.NoError(t, err)
	assert.Contains(t, text, "Go programming language")
}

// minimalPDF assembles a one-page PDF whose only content is the given text.
// The text must not contain parentheses or backslashes.
func minimalPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return b.Bytes()
}
