package valueobject

import "errors"

// PlausibleRange описывает допустимый диапазон значения метрики
type PlausibleRange struct {
	min          float64
	max          float64
	minExclusive bool
}

// NewPlausibleRange создает замкнутый диапазон [min, max]
func NewPlausibleRange(min, max float64) (PlausibleRange, error) {
	if min > max {
		return PlausibleRange{}, errors.New("min must not exceed max")
	}
	return PlausibleRange{min: min, max: max}, nil
}

// NewOpenMinRange создает диапазон (min, max]
func NewOpenMinRange(min, max float64) (PlausibleRange, error) {
	r, err := NewPlausibleRange(min, max)
	if err != nil {
		return PlausibleRange{}, err
	}
	r.minExclusive = true
	return r, nil
}

// MustRange используется для статических таблиц шаблонов
func MustRange(r PlausibleRange, err error) PlausibleRange {
	if err != nil {
		panic(err)
	}
	return r
}

// Contains проверяет, попадает ли значение в диапазон
func (r PlausibleRange) Contains(v float64) bool {
	if r.minExclusive {
		if v <= r.min {
			return false
		}
	} else if v < r.min {
		return false
	}
	return v <= r.max
}

// Min возвращает нижнюю границу
func (r PlausibleRange) Min() float64 {
	return r.min
}

// Max возвращает верхнюю границу
func (r PlausibleRange) Max() float64 {
	return r.max
}
