package usecase

import (
	"path"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var acceptedExtensions = map[string]struct{}{
	".html": {},
	".htm":  {},
	".json": {},
	".zip":  {},
	".txt":  {},
}

var acceptedMimeFragments = []string{"html", "json", "zip", "text/plain"}

// IsAcceptedReport повторяет фильтр формы загрузки: имя содержит fastqc/multiqc
// либо MIME тип или расширение относятся к html, json, zip, txt
func IsAcceptedReport(name, mimeType string) bool {
	lowerName := strings.ToLower(name)
	if strings.Contains(lowerName, "fastqc") || strings.Contains(lowerName, "multiqc") {
		return true
	}

	lowerMime := strings.ToLower(mimeType)
	for _, fragment := range acceptedMimeFragments {
		if strings.Contains(lowerMime, fragment) {
			return true
		}
	}

	_, ok := acceptedExtensions[path.Ext(lowerName)]
	return ok
}

// decodeReport приводит содержимое к UTF-8 с учетом BOM (UTF-8, UTF-16LE/BE)
func decodeReport(data []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}
