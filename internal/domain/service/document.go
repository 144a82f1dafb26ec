package service

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document - подготовленные представления содержимого отчета
// Строится один раз на файл и используется всеми шаблонами
type Document struct {
	raw      string
	text     string
	scrubbed string
}

// versionToken - номера версий и кодировок, которые нельзя принять за значение метрики
var versionToken = regexp.MustCompile(`(?i)\b(?:illumina|solexa|casava|fastqc|multiqc|phred|version)\s*\+?\s*v?\d+(?:\.\d+)*|\bv\d+(?:\.\d+)+`)

// NewDocument создает Document из сырого содержимого
func NewDocument(content string) Document {
	text := plainText(content)
	return Document{
		raw:      content,
		text:     text,
		scrubbed: versionToken.ReplaceAllString(text, " "),
	}
}

// Raw возвращает исходный текст
func (d Document) Raw() string {
	return d.raw
}

// Text возвращает текст без HTML разметки
func (d Document) Text() string {
	return d.text
}

// Size возвращает размер исходного текста в байтах
func (d Document) Size() int {
	return len(d.raw)
}

// IsEmpty сообщает, что отчет не содержит текста
func (d Document) IsEmpty() bool {
	return strings.TrimSpace(d.raw) == ""
}

func (d Document) view(v documentView) string {
	switch v {
	case textView:
		return d.text
	case scrubbedView:
		return d.scrubbed
	default:
		return d.raw
	}
}

// plainText удаляет теги, сохраняя границы ячеек и строк таблиц
func plainText(content string) string {
	if !strings.Contains(content, "<") {
		return content
	}

	var b strings.Builder
	b.Grow(len(content) / 2)

	z := html.NewTokenizer(strings.NewReader(content))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String()
			}
			return content
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
				continue
			}
			b.WriteString(separatorFor(a))
		}
	}
}

func separatorFor(a atom.Atom) string {
	switch a {
	case atom.Td, atom.Th:
		return "\t"
	case atom.Tr, atom.Br, atom.P, atom.Div, atom.Li, atom.Table,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return "\n"
	case atom.Img, atom.Span, atom.A, atom.B, atom.Strong, atom.Em, atom.I:
		return ""
	default:
		return " "
	}
}
