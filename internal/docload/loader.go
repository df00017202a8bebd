// Package docload turns résumé files into raw text. Supported formats are
// PDF, DOCX and plain text (.txt/.md).
package docload

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for file extensions the loader does not
// recognize.
var ErrUnsupportedFormat = errors.New("unsupported document format")

type Loader struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load extracts text from the document at path. Missing files surface the
// underlying not-found error; unknown extensions fail with
// ErrUnsupportedFormat.
func (l *Loader) Load(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("document %s: %w", path, err)
	}

	var text string
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		text, err = loadPDF(path)
	case ".docx":
		text, err = loadDOCX(path)
	case ".txt", ".md":
		text, err = loadPlainText(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", fmt.Errorf("document %s: %w", path, err)
	}

	l.logger.Debug("document loaded", zap.String("path", path), zap.Int("characters", len(text)))

	return text, nil
}

func loadPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// loadDOCX reads the WordprocessingML main document part out of the .docx
// zip container and collects its visible text, one line per paragraph.
func loadDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	var document io.ReadCloser
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document, err = file.Open()
			if err != nil {
				return "", fmt.Errorf("open docx document part: %w", err)
			}
			break
		}
	}
	if document == nil {
		return "", errors.New("docx has no word/document.xml part")
	}
	defer document.Close()

	text, err := wordMLText(document)
	if err != nil {
		return "", fmt.Errorf("parse docx document part: %w", err)
	}

	return text, nil
}

func wordMLText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var parts []string
	var paragraph strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch tok := token.(type) {
		case xml.StartElement:
			switch tok.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteString("\t")
			case "br":
				paragraph.WriteString("\n")
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(paragraph.String()); line != "" {
					parts = append(parts, line)
				}
				paragraph.Reset()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(tok)
			}
		}
	}

	if line := strings.TrimSpace(paragraph.String()); line != "" {
		parts = append(parts, line)
	}

	return strings.Join(parts, "\n"), nil
}

func loadPlainText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(raw) {
		return "", errors.New("file is not valid utf-8 text")
	}

	return strings.TrimSpace(string(raw)), nil
}
