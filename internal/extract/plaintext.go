package extract

import (
	"fmt"
	"unicode/utf8"
)

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("content is not valid utf-8")
	}
	return string(data), nil
}

func init() {
	register(extractPlainText, ".txt", ".text", ".log", ".csv")
}
