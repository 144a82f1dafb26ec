package service

import (
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

const (
	moduleOverrepresented = "Overrepresented sequences"
	modulePerBaseQuality  = "Per base sequence quality"

	moduleEnd = ">>END_MODULE"
)

// fastqcModule возвращает непустые строки модуля fastqc_data.txt
// между строкой ">>name" и >>END_MODULE (или концом текста)
func fastqcModule(raw, name string) ([]string, bool) {
	marker := ">>" + name
	start := -1
	for offset := 0; offset < len(raw); {
		i := strings.Index(raw[offset:], marker)
		if i < 0 {
			return nil, false
		}
		i += offset
		next := i + len(marker)
		atLineStart := i == 0 || raw[i-1] == '\n'
		atHeaderEnd := next == len(raw) || raw[next] == '\t' || raw[next] == '\n' || raw[next] == '\r'
		if atLineStart && atHeaderEnd {
			start = next
			break
		}
		offset = next
	}
	if start < 0 {
		return nil, false
	}

	body := raw[start:]
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return nil, true
	}
	body = body[nl+1:]
	if end := strings.Index(body, moduleEnd); end >= 0 {
		body = body[:end]
	}

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, true
}

// perBaseMeanQuality усредняет колонку Mean модуля Per base sequence quality.
// Группы позиций вида "10-14" весят по числу позиций
func perBaseMeanQuality(raw string) (float64, bool) {
	lines, ok := fastqcModule(raw, modulePerBaseQuality)
	if !ok {
		return 0, false
	}

	meanCol := 1
	var values, weights []float64
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if strings.HasPrefix(line, "#") {
			for i, f := range fields {
				if strings.EqualFold(strings.TrimSpace(f), "Mean") {
					meanCol = i
				}
			}
			continue
		}
		if len(fields) <= meanCol {
			continue
		}
		mean, err := strconv.ParseFloat(strings.TrimSpace(fields[meanCol]), 64)
		if err != nil {
			continue
		}
		values = append(values, mean)
		weights = append(weights, basePositionWidth(fields[0]))
	}

	if len(values) == 0 {
		return 0, false
	}
	return stat.Mean(values, weights), true
}

func basePositionWidth(pos string) float64 {
	lo, hi, found := strings.Cut(strings.TrimSpace(pos), "-")
	if !found {
		return 1
	}
	from, err := strconv.Atoi(lo)
	if err != nil {
		return 1
	}
	to, err := strconv.Atoi(hi)
	if err != nil || to < from {
		return 1
	}
	return float64(to - from + 1)
}
