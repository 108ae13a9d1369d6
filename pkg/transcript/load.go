package transcript

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads and parses the transcript at path. The loader is chosen by
// file extension.
func Load(path string) (*Transcript, error) {
	if !IsSupported(path) {
		return nil, fmt.Errorf("%w: %s", merrors.ErrUnsupportedFormat, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", path, err)
	}
	return LoadBytes(filepath.Base(path), data)
}

// LoadBytes parses transcript content; name selects the loader by extension.
// A name without an extension is treated as plain text.
func LoadBytes(name string, data []byte) (*Transcript, error) {
	ext := strings.ToLower(filepath.Ext(name))

	if ext == ".pdf" {
		text, err := pdfText(data)
		if err != nil {
			return nil, fmt.Errorf("read pdf %s: %w", name, err)
		}
		t, err := Parse(text)
		if err != nil {
			return nil, err
		}
		t.Format = FormatPDF
		return t, nil
	}

	text, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	switch ext {
	case ".vtt":
		segments, err := ParseVTT(strings.NewReader(text))
		if err != nil {
			return nil, fmt.Errorf("parse vtt %s: %w", name, err)
		}
		return ParseSegments(segments, FormatVTT)

	case ".md", ".markdown":
		t, err := Parse(text)
		if err != nil {
			return nil, err
		}
		t.Format = FormatMarkdown
		return t, nil

	case ".txt", ".text", "":
		segments, skipped, err := ParseTXTExport(strings.NewReader(text))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if len(segments) > 0 && len(segments) >= skipped {
			return ParseSegments(segments, FormatTXT)
		}
		return Parse(text)

	default:
		return nil, fmt.Errorf("%w: %s", merrors.ErrUnsupportedFormat, ext)
	}
}

// Decode returns data as UTF-8 text. UTF-8 (with or without BOM) passes
// through; UTF-16 is detected by its BOM; anything else is read as Windows-1252.
func Decode(data []byte) (string, error) {
	hasUTF16BOM := len(data) >= 2 &&
		((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF))

	if !hasUTF16BOM && utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	}

	decoder := xunicode.BOMOverride(charmap.Windows1252.NewDecoder())
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), decoder))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
