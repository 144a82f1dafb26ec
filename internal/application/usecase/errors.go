package usecase

import "errors"

var (
	// ErrInvalidInput помечает ошибки валидации запроса
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFormat - файл не похож на отчет FASTQC/MultiQC
	ErrUnsupportedFormat = errors.New("unsupported report format")
	// ErrTooManyFiles - превышено число файлов в одном анализе
	ErrTooManyFiles = errors.New("too many files")
	// ErrFileTooLarge - превышен размер одного файла
	ErrFileTooLarge = errors.New("file too large")
)
