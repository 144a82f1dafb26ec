package valueobject

import "errors"

// Status представляет статус качества (Value Object)
type Status string

const (
	StatusGood    Status = "good"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Validate проверяет валидность статуса
func (s Status) Validate() error {
	switch s {
	case StatusGood, StatusWarning, StatusError:
		return nil
	default:
		return errors.New("invalid status")
	}
}

// String возвращает строковое представление статуса
func (s Status) String() string {
	return string(s)
}

// Glyph возвращает значок статуса для текстовых отчетов
func (s Status) Glyph() string {
	switch s {
	case StatusGood:
		return "✅"
	case StatusWarning:
		return "⚠️"
	default:
		return "❌"
	}
}

// IsGood сообщает, что статус не требует действий
func (s Status) IsGood() bool {
	return s == StatusGood
}
