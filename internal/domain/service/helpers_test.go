package service

import (
	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

func matchedMetrics(name string, reads, quality, gc, duplication, adapter float64) entity.FileMetrics {
	return entity.NewFileMetrics(name, map[valueobject.MetricKind]valueobject.Extraction{
		valueobject.TotalReads:  valueobject.Matched(reads),
		valueobject.Quality:     valueobject.Matched(quality),
		valueobject.GCContent:   valueobject.Matched(gc),
		valueobject.Duplication: valueobject.Matched(duplication),
		valueobject.Adapter:     valueobject.Matched(adapter),
	}, 0)
}

func newTestExtractor(seed uint64) *PatternExtractor {
	return NewPatternExtractor(NewSeededSampler(seed), nil)
}

const fastqcDataReport = "##FastQC\t0.11.9\n" +
	">>Basic Statistics\tpass\n" +
	"#Measure\tValue\n" +
	"Filename\tA.fastq\n" +
	"Total Sequences\t1000000\n" +
	"%GC\t45\n" +
	">>END_MODULE\n" +
	">>Per base sequence quality\tpass\n" +
	"#Base\tMean\tMedian\tLower Quartile\tUpper Quartile\t10th Percentile\t90th Percentile\n" +
	"1\t36.5\t37.0\t35.0\t38.0\t33.0\t39.0\n" +
	"2-4\t38.5\t39.0\t37.0\t40.0\t35.0\t41.0\n" +
	">>END_MODULE\n" +
	"#Total Deduplicated Percentage\t90.0\n" +
	"Adapter content: 1%\n"

const multiqcJSONReport = `{"total_sequences": 1500000, "avg_sequence_quality": 32, "percent_gc": 44, "percent_duplicates": 12, "adapter_content": 2}`
