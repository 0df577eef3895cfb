// Package extract pulls plain text out of uploaded files. One extractor per
// format, selected by file extension.
package extract

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	errs "github.com/askdocs/askdocs/internal/pkg/errors"
)

type extractFunc func(data []byte) (string, error)

var extractors = map[string]extractFunc{}

func register(fn extractFunc, exts ...string) {
	for _, ext := range exts {
		extractors[ext] = fn
	}
}

// Supported reports whether the filename has an extractable extension.
func Supported(filename string) bool {
	_, ok := extractors[normalizeExt(filename)]
	return ok
}

// SupportedExtensions lists accepted extensions, sorted, without the dot.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extractors))
	for ext := range extractors {
		out = append(out, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(out)
	return out
}

// Text extracts the plain text content of an uploaded file. It fails with
// ErrUnsupportedFormat for unknown extensions and ErrExtraction when a
// supported file yields no content.
func Text(filename string, data []byte) (string, error) {
	ext := normalizeExt(filename)
	fn, ok := extractors[ext]
	if !ok {
		return "", fmt.Errorf("extension %q is not one of %v: %w", ext, SupportedExtensions(), errs.ErrUnsupportedFormat)
	}
	text, err := fn(data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %v: %w", ext, err, errs.ErrExtraction)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("file %q contains no extractable text: %w", filename, errs.ErrExtraction)
	}
	return text, nil
}

func normalizeExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
