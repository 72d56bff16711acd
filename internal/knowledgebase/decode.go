package knowledgebase

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/MrWong99/claimwright/internal/apperr"
)

// mimeKind is the declared decoding strategy for an ingested file.
type mimeKind string

const (
	mimePlain mimeKind = "text/plain"
	mimePDF   mimeKind = "application/pdf"
	mimeDOCX  mimeKind = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// decodeText converts raw bytes into UTF-8 text according to kind. Malformed
// input fails with apperr.KindDecodeError and no side effects.
func decodeText(kind mimeKind, raw []byte) (string, error) {
	switch kind {
	case mimePlain, "":
		if !utf8.Valid(raw) {
			return "", apperr.New(apperr.KindDecodeError, "plain text is not valid UTF-8")
		}
		return string(raw), nil

	case mimePDF:
		text, err := decodePDF(raw)
		if err != nil {
			return "", apperr.Wrap(apperr.KindDecodeError, "decode pdf", err)
		}
		return text, nil

	case mimeDOCX:
		text, err := decodeDOCX(raw)
		if err != nil {
			return "", apperr.Wrap(apperr.KindDecodeError, "decode docx", err)
		}
		return text, nil

	default:
		return "", apperr.New(apperr.KindDecodeError, fmt.Sprintf("unsupported MIME kind %q", kind))
	}
}

func decodePDF(raw []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func decodeDOCX(raw []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	doc := r.Editable()
	text := doc.GetContent()
	if text == "" {
		return "", io.ErrUnexpectedEOF
	}
	return text, nil
}
