package entity

import (
	"errors"
	"strings"
)

// ReportFile представляет загруженный файл отчета FASTQC/MultiQC
// Иммутабельный объект, один на каждый загруженный файл
type ReportFile struct {
	name     string
	content  string
	size     int64
	mimeType string
}

// NewReportFile создает новый ReportFile
func NewReportFile(name, content string, size int64, mimeType string) (ReportFile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ReportFile{}, errors.New("file name cannot be empty")
	}
	if size < 0 {
		return ReportFile{}, errors.New("file size cannot be negative")
	}
	if size == 0 {
		size = int64(len(content))
	}

	return ReportFile{
		name:     name,
		content:  content,
		size:     size,
		mimeType: strings.TrimSpace(mimeType),
	}, nil
}

// Name возвращает имя файла
func (f ReportFile) Name() string {
	return f.name
}

// Content возвращает сырой текст отчета
func (f ReportFile) Content() string {
	return f.content
}

// Size возвращает размер файла в байтах
func (f ReportFile) Size() int64 {
	return f.size
}

// MimeType возвращает MIME тип файла
func (f ReportFile) MimeType() string {
	return f.mimeType
}
