package usecase

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/language"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
)

const (
	cacheKeyResultPrefix   = "analysis:result:"
	cacheKeyAnalysisPrefix = "analysis:item:"
	cacheKeyListPrefix     = "analysis:list:"
	cacheKeyListPattern    = cacheKeyListPrefix + "*"
)

// resultCacheKey строит ключ по имени, типу и содержимому файлов и языку
func resultCacheKey(files []entity.ReportFile, lang language.Tag) string {
	h := sha256.New()
	var size [8]byte
	for _, f := range files {
		for _, field := range []string{f.Name(), f.MimeType(), f.Content()} {
			binary.BigEndian.PutUint64(size[:], uint64(len(field)))
			h.Write(size[:])
			h.Write([]byte(field))
		}
	}
	h.Write([]byte(lang.String()))
	return cacheKeyResultPrefix + hex.EncodeToString(h.Sum(nil))
}

func analysisCacheKey(id string) string {
	return cacheKeyAnalysisPrefix + id
}

func listCacheKey(limit int, from, to int64) string {
	return fmt.Sprintf("%s%d:%d:%d", cacheKeyListPrefix, limit, from, to)
}
