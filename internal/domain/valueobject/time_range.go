package valueobject

import (
	"errors"
	"time"
)

// TimeRange представляет временной диапазон выборки истории (Value Object)
// Нулевая граница означает отсутствие ограничения с этой стороны
type TimeRange struct {
	from time.Time
	to   time.Time
}

// NewTimeRange создает новый TimeRange с валидацией
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return TimeRange{}, errors.New("from must be less than or equal to to")
	}

	return TimeRange{
		from: from.UTC(),
		to:   to.UTC(),
	}, nil
}

// NewTimeRangeFromDuration создает TimeRange от указанного времени назад до текущего момента
func NewTimeRangeFromDuration(duration time.Duration) (TimeRange, error) {
	if duration <= 0 {
		return TimeRange{}, errors.New("duration must be positive")
	}

	now := time.Now().UTC()
	return TimeRange{from: now.Add(-duration), to: now}, nil
}

// From возвращает начальное время (может быть нулевым)
func (tr TimeRange) From() time.Time {
	return tr.from
}

// To возвращает конечное время (может быть нулевым)
func (tr TimeRange) To() time.Time {
	return tr.to
}

// IsUnbounded сообщает, что диапазон не ограничивает выборку
func (tr TimeRange) IsUnbounded() bool {
	return tr.from.IsZero() && tr.to.IsZero()
}

// Contains проверяет, попадает ли указанное время в диапазон
func (tr TimeRange) Contains(t time.Time) bool {
	if !tr.from.IsZero() && t.Before(tr.from) {
		return false
	}
	if !tr.to.IsZero() && t.After(tr.to) {
		return false
	}
	return true
}
