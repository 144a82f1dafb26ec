package service

import "github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"

// Пороги общего статуса анализа
const (
	overallErrorMinQuality       = 20.0
	overallErrorMaxDuplication   = 30.0
	overallErrorMaxAdapter       = 15.0
	overallWarningMinQuality     = 30.0
	overallWarningMinGC          = 30.0
	overallWarningMaxGC          = 70.0
	overallWarningMaxDuplication = 20.0
	overallWarningMaxAdapter     = 10.0
)

// Пороги таблицы метрик. Намеренно не совпадают с порогами общего статуса
const (
	QualityThreshold     = 30.0
	GCThreshold          = 50.0
	DuplicationThreshold = 20.0
	AdapterThreshold     = 5.0

	qualityWarningMin  = 20.0
	gcGoodMin          = 35.0
	gcGoodMax          = 65.0
	gcWarningMin       = 30.0
	gcWarningMax       = 70.0
	duplicationGoodMax = 15.0
	duplicationWarnMax = 25.0
	adapterGoodMax     = 5.0
	adapterWarningMax  = 10.0
)

// OverallStatus определяет общий статус по средним значениям
func OverallStatus(quality, gc, duplication, adapter float64) valueobject.Status {
	if quality < overallErrorMinQuality || duplication > overallErrorMaxDuplication || adapter > overallErrorMaxAdapter {
		return valueobject.StatusError
	}

	if quality < overallWarningMinQuality ||
		gc < overallWarningMinGC || gc > overallWarningMaxGC ||
		duplication > overallWarningMaxDuplication ||
		adapter > overallWarningMaxAdapter {
		return valueobject.StatusWarning
	}

	return valueobject.StatusGood
}

// QualityStatus - статус строки "качество" таблицы метрик
func QualityStatus(v float64) valueobject.Status {
	switch {
	case v >= QualityThreshold:
		return valueobject.StatusGood
	case v >= qualityWarningMin:
		return valueobject.StatusWarning
	default:
		return valueobject.StatusError
	}
}

// GCStatus - статус строки "GC" таблицы метрик
func GCStatus(v float64) valueobject.Status {
	switch {
	case v >= gcGoodMin && v <= gcGoodMax:
		return valueobject.StatusGood
	case v >= gcWarningMin && v <= gcWarningMax:
		return valueobject.StatusWarning
	default:
		return valueobject.StatusError
	}
}

// DuplicationStatus - статус строки "дупликация" таблицы метрик
func DuplicationStatus(v float64) valueobject.Status {
	switch {
	case v <= duplicationGoodMax:
		return valueobject.StatusGood
	case v <= duplicationWarnMax:
		return valueobject.StatusWarning
	default:
		return valueobject.StatusError
	}
}

// AdapterStatus - статус строки "адаптеры" таблицы метрик
func AdapterStatus(v float64) valueobject.Status {
	switch {
	case v <= adapterGoodMax:
		return valueobject.StatusGood
	case v <= adapterWarningMax:
		return valueobject.StatusWarning
	default:
		return valueobject.StatusError
	}
}
