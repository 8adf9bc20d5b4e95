// Package extract turns uploaded PDF documents into plain text for the quiz
// generator.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/victornm/genquiz/internal/errors"
)

// minTextLen rejects documents whose text is too short to yield meaningful
// questions.
const minTextLen = 50

// Text extracts the concatenated plain text of a PDF document.
// It fails with CodeInvalidArgument when the bytes are not a PDF, the PDF
// cannot be parsed, or the extracted text is shorter than minTextLen.
func Text(data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("extract: not a PDF document"))
	}

	text, err := plainText(data)
	if err != nil {
		return "", errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("extract: parse PDF: %v", err))
	}

	return checkText(text)
}

// checkText trims the extracted text and rejects documents too short to yield
// meaningful questions. Length is counted in runes, not bytes.
func checkText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < minTextLen {
		return "", errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("extract: document text is too short to generate questions from (%d chars, need %d)", n, minTextLen))
	}

	return text, nil
}

func plainText(data []byte) (text string, err error) {
	// The parser panics on some malformed files instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	b, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, b); err != nil {
		return "", err
	}

	return sb.String(), nil
}
