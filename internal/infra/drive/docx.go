package drive

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/mpis/persona-genesis/internal/core/sources"
)

// DocxExtractor はOOXML形式のWord文書から本文テキストを抽出する
type DocxExtractor struct{}

// NewDocxExtractor は新しい DocxExtractor を作成する
func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

var _ sources.DocxExtractor = (*DocxExtractor)(nil)

// ExtractDocx はdocxバイナリを展開し、word/document.xml の
// テキストノードを段落単位で結合して返す
func (e *DocxExtractor) ExtractDocx(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}

	var document *zip.File
	for _, file := range reader.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return "", fmt.Errorf("docx archive has no word/document.xml")
	}

	rc, err := document.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	return extractDocumentText(rc)
}

// extractDocumentText はdocument.xmlをストリームで走査し、
// w:t のテキストを集めて w:p 境界で改行する
func extractDocumentText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var builder strings.Builder
	var paragraph strings.Builder
	var inText bool

	flush := func() {
		text := strings.TrimSpace(paragraph.String())
		if text != "" {
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		paragraph.Reset()
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
	flush()

	return builder.String(), nil
}
