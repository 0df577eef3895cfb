package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func init() {
	register(extractPDF, ".pdf")
}
