package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

type documentView int

const (
	rawView documentView = iota
	textView
	// textView без строк версий и кодировок ("Illumina 1.9", "FastQC v0.12.1")
	scrubbedView
)

type patternTier string

const (
	tierPrimary    patternTier = "primary"
	tierSecondary  patternTier = "secondary"
	tierContextual patternTier = "contextual"
)

// metricPattern - один шаблон поиска метрики с собственным диапазоном правдоподобия
type metricPattern struct {
	name      string
	tier      patternTier
	view      documentView
	re        *regexp.Regexp
	read      func(string) (float64, bool)
	valid     valueobject.PlausibleRange
	transform func(float64) float64
}

// numberGuard не дает захватить цифры из середины токена ("#M2", "v1.2"),
// numberEnd - из начала слова ("10th Percentile")
const (
	numberGuard = `(?:^|[^\w.])`
	number      = `(\d[\d,]*(?:\.\d+)?)`
	numberEnd   = `(?:[^\w.]|\.(?:\D|$)|$)`
)

var (
	readsRange           = valueobject.MustRange(valueobject.NewPlausibleRange(100, 1e9))
	contextualReadsRange = valueobject.MustRange(valueobject.NewPlausibleRange(1000, 5e7))
	qualityRange         = valueobject.MustRange(valueobject.NewOpenMinRange(0, 45))
	percentRange         = valueobject.MustRange(valueobject.NewPlausibleRange(0, 100))
)

func deduplicatedToDuplication(v float64) float64 {
	return 100 - v
}

func pattern(name string, tier patternTier, view documentView, expr string, valid valueobject.PlausibleRange) metricPattern {
	return metricPattern{
		name:  name,
		tier:  tier,
		view:  view,
		re:    regexp.MustCompile(expr),
		valid: valid,
	}
}

// modulePattern читает значение из таблицы модуля FASTQC, а не регулярным выражением
func modulePattern(name string, tier patternTier, read func(string) (float64, bool), valid valueobject.PlausibleRange) metricPattern {
	return metricPattern{
		name:  name,
		tier:  tier,
		view:  rawView,
		read:  read,
		valid: valid,
	}
}

func (p metricPattern) find(doc Document) (float64, bool) {
	content := doc.view(p.view)
	if p.read != nil {
		return p.read(content)
	}
	m := p.re.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	v, err := parseNumber(m[len(m)-1])
	if err != nil {
		return 0, false
	}
	return v, true
}

func (p metricPattern) withTransform(fn func(float64) float64) metricPattern {
	p.transform = fn
	return p
}

// Таблицы шаблонов упорядочены по приоритету и не изменяются после инициализации
var patternTables = map[valueobject.MetricKind][]metricPattern{
	valueobject.TotalReads: {
		pattern("fastqc-html-total", tierPrimary, rawView, `(?i)Total Sequences</td>\s*<td[^>]*>\s*`+number, readsRange),
		pattern("fastqc-html-filtered", tierPrimary, rawView, `(?i)Filtered Sequences</td>\s*<td[^>]*>\s*`+number, readsRange),
		pattern("fastqc-data-total", tierPrimary, rawView, `(?im)^Total Sequences\t`+number, readsRange),
		pattern("json-total", tierSecondary, rawView, `(?i)"(?:total_sequences|total sequences|total_reads|totalReads)"\s*:\s*"?`+number, readsRange),
		pattern("key-value-total", tierSecondary, textView, `(?i)total\s+(?:sequences|reads)\s*[:=]?\s*`+number, readsRange),
		pattern("html-sequences-cell", tierContextual, rawView, `(?i)sequences</td>\s*<td[^>]*>\s*`+number+`\s*<`, contextualReadsRange),
		pattern("reads-suffix", tierContextual, textView, `(?i)`+numberGuard+number+`\s+(?:reads|sequences)\b`, contextualReadsRange),
	},
	valueobject.Quality: {
		modulePattern("fastqc-data-per-base-mean", tierPrimary, perBaseMeanQuality, qualityRange),
		pattern("json-quality", tierPrimary, rawView, `(?i)"(?:avg_sequence_quality|mean_quality|average_quality|quality_score|qualityScore)"\s*:\s*"?`+number, qualityRange),
		pattern("key-value-mean-quality", tierPrimary, textView, `(?i)(?:mean|average)\s+(?:quality|phred)(?:\s+score)?\s*[:=]\s*`+number, qualityRange),
		pattern("per-base-quality-section", tierSecondary, scrubbedView, `(?is)Per base sequence quality.*?`+numberGuard+number+numberEnd, qualityRange),
		pattern("quality-any", tierSecondary, scrubbedView, `(?i)quality.*?`+numberGuard+number+numberEnd, qualityRange),
	},
	valueobject.GCContent: {
		pattern("fastqc-data-gc", tierPrimary, rawView, `(?im)^%GC\t`+number, percentRange),
		pattern("fastqc-html-gc", tierPrimary, rawView, `(?i)%GC</td>\s*<td[^>]*>\s*`+number, percentRange),
		pattern("json-gc", tierPrimary, rawView, `(?i)"(?:percent_gc|%GC|gc_content|gcContent)"\s*:\s*"?`+number, percentRange),
		pattern("gc-section", tierSecondary, textView, `(?is)Per sequence GC content.*?`+numberGuard+number+`\s*%`, percentRange),
		pattern("gc-before-percent", tierSecondary, textView, `(?i)GC.*?`+numberGuard+number+`\s*%`, percentRange),
		pattern("percent-before-gc", tierSecondary, textView, `(?i)`+numberGuard+number+`\s*%.*?\bGC`, percentRange),
	},
	valueobject.Duplication: {
		pattern("fastqc-data-deduplicated", tierPrimary, rawView, `(?im)^#?Total Deduplicated Percentage\t`+number, percentRange).
			withTransform(deduplicatedToDuplication),
		pattern("json-duplication", tierPrimary, rawView, `(?i)"(?:percent_duplicates|duplication_level|duplicationLevel)"\s*:\s*"?`+number, percentRange),
		pattern("deduplicated-text", tierPrimary, textView, `(?i)(?:Total\s+)?Deduplicated\s+Percentage\D{0,20}?`+number, percentRange).
			withTransform(deduplicatedToDuplication),
		pattern("duplicate-any", tierSecondary, textView, `(?is)Duplicate.*?`+numberGuard+number+`\s*%`, percentRange),
		pattern("duplication-any", tierSecondary, textView, `(?i)duplication.*?`+numberGuard+number+`\s*%`, percentRange),
	},
	valueobject.Adapter: {
		pattern("json-adapter", tierPrimary, rawView, `(?i)"(?:adapter_content|percent_adapter|adapterContent)"\s*:\s*"?`+number, percentRange),
		pattern("key-value-adapter", tierPrimary, textView, `(?i)adapter\s+content\s*[:=]\s*`+number, percentRange),
		pattern("adapter-any", tierSecondary, textView, `(?is)Adapter.*?`+numberGuard+number+`\s*%`, percentRange),
	},
}

// Индикаторы прохождения модулей FASTQC
var (
	passIndicators = []string{"tick.png", "[PASS]"}
	warnIndicators = []string{"warn.png", "[WARN]"}
	failIndicators = []string{"error.png", "[FAIL]"}

	passRow = regexp.MustCompile(`(?m)^PASS\t`)
	warnRow = regexp.MustCompile(`(?m)^WARN\t`)
	failRow = regexp.MustCompile(`(?m)^FAIL\t`)
)

// band - полуинтервал [min, max) для синтетических значений
type band struct {
	min, max float64
}

var (
	qualityHighBand    = band{35, 45}
	qualityMediumBand  = band{25, 35}
	qualityLowBand     = band{15, 25}
	gcSmallReportBand  = band{40, 50}
	gcLargeReportBand  = band{45, 60}
	readsDefaultBand   = band{1e6, 4e6}
	duplicationDefault = band{0, 30}
	adapterDefault     = band{0, 10}
)

const smallReportBytes = 10 * 1024

// organismGC сопоставляет ключевые слова организмов с типичным GC
var organismGC = []struct {
	name string
	re   *regexp.Regexp
	band band
}{
	{"human", regexp.MustCompile(`(?i)\bhuman\b|homo\s+sapiens`), band{40, 42}},
	{"mouse", regexp.MustCompile(`(?i)\bmouse\b|mus\s+musculus`), band{41, 43}},
	{"e.coli", regexp.MustCompile(`(?i)\bE\.?\s?coli\b|escherichia\s+coli`), band{50, 52}},
	{"yeast", regexp.MustCompile(`(?i)\byeast\b|saccharomyces`), band{38, 40}},
	{"arabidopsis", regexp.MustCompile(`(?i)arabidopsis`), band{35, 37}},
	{"drosophila", regexp.MustCompile(`(?i)drosophila`), band{41, 43}},
	{"c.elegans", regexp.MustCompile(`(?i)\bC\.?\s?elegans\b|caenorhabditis`), band{35, 37}},
	{"plasmodium", regexp.MustCompile(`(?i)plasmodium`), band{19, 21}},
}

// PatternExtractor извлекает отдельную метрику из текста отчета (Domain Service)
// Никогда не возвращает ошибку: при промахе используется эвристика или полоса по умолчанию
type PatternExtractor struct {
	sampler Sampler
	log     *logger.Logger
}

// NewPatternExtractor создает новый PatternExtractor
func NewPatternExtractor(sampler Sampler, log *logger.Logger) *PatternExtractor {
	if sampler == nil {
		sampler = NewUniformSampler(nil)
	}
	return &PatternExtractor{sampler: sampler, log: log}
}

// Extract извлекает метрику вида kind из документа
func (e *PatternExtractor) Extract(kind valueobject.MetricKind, doc Document) valueobject.Extraction {
	if !doc.IsEmpty() {
		if v, p, ok := matchPatterns(patternTables[kind], doc); ok {
			e.log.Debug("metric matched", "kind", kind, "tier", p.tier, "pattern", p.name, "value", v)
			return valueobject.Matched(v)
		}
	}

	var result valueobject.Extraction
	switch kind {
	case valueobject.TotalReads:
		result = valueobject.Default(math.Floor(e.sample(readsDefaultBand)))
	case valueobject.Quality:
		result = e.estimateQuality(doc)
	case valueobject.GCContent:
		result = e.estimateGC(doc)
	case valueobject.Duplication:
		result = valueobject.Default(e.sample(duplicationDefault))
	case valueobject.Adapter:
		result = valueobject.Default(e.sample(adapterDefault))
	default:
		result = valueobject.Default(0)
	}

	e.log.Debug("metric estimated", "kind", kind, "source", result.Source(), "value", result.Value())
	return result
}

// ExtractContent - удобная обертка над Extract для сырого текста
func (e *PatternExtractor) ExtractContent(kind valueobject.MetricKind, content string) valueobject.Extraction {
	return e.Extract(kind, NewDocument(content))
}

func matchPatterns(patterns []metricPattern, doc Document) (float64, metricPattern, bool) {
	for _, p := range patterns {
		v, ok := p.find(doc)
		if !ok {
			continue
		}
		if p.transform != nil {
			v = p.transform(v)
		}
		if p.valid.Contains(v) {
			return v, p, true
		}
	}
	return 0, metricPattern{}, false
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// estimateQuality оценивает качество по доле пройденных модулей
func (e *PatternExtractor) estimateQuality(doc Document) valueobject.Extraction {
	raw := doc.Raw()
	pass := countIndicators(raw, passIndicators, passRow)
	warn := countIndicators(raw, warnIndicators, warnRow)
	fail := countIndicators(raw, failIndicators, failRow)

	total := pass + warn + fail
	if total == 0 {
		return valueobject.Default(e.sample(qualityLowBand))
	}

	ratio := float64(pass) / float64(total)
	switch {
	case ratio >= 0.8:
		return valueobject.Heuristic(e.sample(qualityHighBand))
	case ratio >= 0.5:
		return valueobject.Heuristic(e.sample(qualityMediumBand))
	default:
		return valueobject.Heuristic(e.sample(qualityLowBand))
	}
}

// estimateGC оценивает GC по упоминанию организма либо по размеру отчета
func (e *PatternExtractor) estimateGC(doc Document) valueobject.Extraction {
	text := doc.Text()
	for _, o := range organismGC {
		if o.re.MatchString(text) {
			return valueobject.Heuristic(e.sample(o.band))
		}
	}

	if doc.Size() < smallReportBytes {
		return valueobject.Default(e.sample(gcSmallReportBand))
	}
	return valueobject.Default(e.sample(gcLargeReportBand))
}

func (e *PatternExtractor) sample(b band) float64 {
	return e.sampler.Uniform(b.min, b.max)
}

func countIndicators(content string, tokens []string, row *regexp.Regexp) int {
	count := 0
	for _, t := range tokens {
		count += strings.Count(content, t)
	}
	return count + len(row.FindAllStringIndex(content, -1))
}
