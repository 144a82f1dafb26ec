package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
)

func reportFile(t *testing.T, name, content, mime string) entity.ReportFile {
	t.Helper()
	f, err := entity.NewReportFile(name, content, 0, mime)
	require.NoError(t, err)
	return f
}

func TestResultCacheKey(t *testing.T) {
	const content = "Total Sequences\t1000\n%GC\t48\n"

	asText := resultCacheKey([]entity.ReportFile{reportFile(t, "s1_fastqc.txt", content, "text/plain")}, language.English)
	again := resultCacheKey([]entity.ReportFile{reportFile(t, "s1_fastqc.txt", content, "text/plain")}, language.English)
	asHTML := resultCacheKey([]entity.ReportFile{reportFile(t, "s1_fastqc.txt", content, "text/html")}, language.English)
	french := resultCacheKey([]entity.ReportFile{reportFile(t, "s1_fastqc.txt", content, "text/plain")}, language.French)

	assert.True(t, strings.HasPrefix(asText, cacheKeyResultPrefix))
	assert.Equal(t, asText, again)
	assert.NotEqual(t, asText, asHTML)
	assert.NotEqual(t, asText, french)

	// границы полей не сдвигаются между именем, типом и содержимым
	shifted := resultCacheKey([]entity.ReportFile{reportFile(t, "s1_fastqc.txttext/plain", content, "")}, language.English)
	assert.NotEqual(t, asText, shifted)
}
