// Package processor извлекает метаданные и превью из содержимого реликтов.
//
// Диспетчеризация по нормализованному MIME-типу: текст, код, CSV
// и бинарный fallback. Декодирование изображений и PDF не выполняется —
// для них возвращаются только базовые метаданные.
package processor

import (
	"encoding/csv"
	"strings"
	"unicode/utf8"
)

// Kind — категория обработки содержимого.
type Kind string

const (
	KindText   Kind = "text"
	KindCode   Kind = "code"
	KindCSV    Kind = "csv"
	KindBinary Kind = "binary"
)

// previewChars — предел длины текстового превью в символах.
const previewChars = 500

// previewRows — количество строк CSV в превью (без заголовка).
const previewRows = 10

// Metadata — метаданные содержимого. Поля заполняются в зависимости
// от категории.
type Metadata struct {
	LineCount   int      `json:"line_count,omitempty"`
	CharCount   int      `json:"char_count,omitempty"`
	WordCount   int      `json:"word_count,omitempty"`
	Language    string   `json:"language,omitempty"`
	Encoding    string   `json:"encoding,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	RowCount    int      `json:"row_count,omitempty"`
	ColumnCount int      `json:"column_count,omitempty"`
	SizeBytes   int      `json:"size_bytes,omitempty"`
}

// Preview — данные превью содержимого.
type Preview struct {
	Type      Kind       `json:"type"`
	Text      string     `json:"text,omitempty"`
	Truncated bool       `json:"truncated,omitempty"`
	Language  string     `json:"language,omitempty"`
	LineCount int        `json:"line_count,omitempty"`
	Rows      [][]string `json:"rows,omitempty"`
	RowCount  int        `json:"row_count,omitempty"`
	HasMore   bool       `json:"has_more,omitempty"`
}

// Result — результат обработки содержимого.
type Result struct {
	Kind     Kind      `json:"kind"`
	Metadata *Metadata `json:"metadata"`
	// Preview отсутствует для бинарного содержимого
	Preview *Preview `json:"preview,omitempty"`
}

// codeApplicationSubtypes — подтипы application/*, считающиеся кодом.
var codeApplicationSubtypes = []string{
	"javascript", "json", "xml", "yaml", "yml", "toml", "ini", "config",
	"ld+json", "hal+json", "vnd.api+json", "atom+xml", "rss+xml",
}

// codeIndicators — маркеры кода в произвольном MIME-типе.
var codeIndicators = []string{
	"code", "script", "source", "json", "xml", "yaml", "yml", "toml",
	"ini", "config", "css", "scss", "sass", "less", "stylus",
	"python", "javascript", "java", "c++", "ruby", "go", "rust",
	"php", "perl", "shell", "bash", "powershell", "sql",
	"dockerfile", "makefile", "typescript", "coffeescript",
}

// textExcludedFromCode — типы text/*, которые остаются обычным текстом.
var textExcludedFromCode = []string{"text/markdown", "text/html", "text/csv"}

// Detect определяет категорию обработки по MIME-типу.
// Изображения и неизвестные application/* типы — бинарный fallback.
func Detect(contentType string) Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	// Параметры типа (charset и т.п.) не влияют на категорию
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	switch {
	case strings.Contains(ct, "image"):
		return KindBinary
	case strings.Contains(ct, "csv"):
		return KindCSV
	case shouldTreatAsCode(ct):
		return KindCode
	case strings.HasPrefix(ct, "text/"):
		return KindText
	default:
		return KindBinary
	}
}

// shouldTreatAsCode решает, обрабатывать ли MIME-тип как код.
func shouldTreatAsCode(ct string) bool {
	if strings.HasPrefix(ct, "application/") {
		for _, sub := range codeApplicationSubtypes {
			if strings.Contains(ct, sub) {
				return true
			}
		}
	}

	for _, ind := range codeIndicators {
		if strings.Contains(ct, ind) {
			return true
		}
	}

	// Все text/* кроме явных исключений — код
	if strings.HasPrefix(ct, "text/") {
		for _, excl := range textExcludedFromCode {
			if ct == excl {
				return false
			}
		}
		return true
	}
	return false
}

// Process извлекает метаданные и превью из содержимого.
// languageHint — подсказка языка из метаданных реликта, nil если не задана.
func Process(content []byte, contentType string, languageHint *string) *Result {
	kind := Detect(contentType)

	switch kind {
	case KindText:
		return processText(content)
	case KindCode:
		return processCode(content, languageHint)
	case KindCSV:
		return processCSV(content)
	default:
		return processBinary(content)
	}
}

// decodeText приводит содержимое к валидному UTF-8,
// заменяя некорректные последовательности.
func decodeText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), "�")
}

func processText(content []byte) *Result {
	text := decodeText(content)
	runes := []rune(text)

	meta := &Metadata{
		LineCount: strings.Count(text, "\n") + 1,
		CharCount: len(runes),
		WordCount: len(strings.Fields(text)),
		Encoding:  "utf-8",
	}

	preview := &Preview{Type: KindText}
	if len(runes) > previewChars {
		preview.Text = string(runes[:previewChars])
		preview.Truncated = true
	} else {
		preview.Text = text
	}

	return &Result{Kind: KindText, Metadata: meta, Preview: preview}
}

func processCode(content []byte, languageHint *string) *Result {
	text := decodeText(content)
	lineCount := strings.Count(text, "\n") + 1

	// Язык — только из подсказки; автоопределение по содержимому
	// не выполняется
	language := "text"
	if languageHint != nil && *languageHint != "" && *languageHint != "auto" {
		language = strings.ToLower(*languageHint)
	}

	meta := &Metadata{
		LineCount: lineCount,
		CharCount: len([]rune(text)),
		Language:  language,
		Encoding:  "utf-8",
	}

	runes := []rune(text)
	preview := &Preview{
		Type:      KindCode,
		Language:  language,
		LineCount: lineCount,
	}
	if len(runes) > previewChars {
		preview.Text = string(runes[:previewChars])
		preview.Truncated = true
	} else {
		preview.Text = text
	}

	return &Result{Kind: KindCode, Metadata: meta, Preview: preview}
}

func processCSV(content []byte) *Result {
	text := decodeText(content)

	reader := csv.NewReader(strings.NewReader(text))
	// Рваные строки не считаются ошибкой формата
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil || len(rows) == 0 {
		// Некорректный CSV обрабатывается как обычный текст
		return processText(content)
	}

	headers := rows[0]
	meta := &Metadata{
		Columns:     headers,
		RowCount:    len(rows) - 1,
		ColumnCount: len(headers),
	}

	dataRows := rows[1:]
	hasMore := len(dataRows) > previewRows
	if hasMore {
		dataRows = dataRows[:previewRows]
	}
	preview := &Preview{
		Type:     KindCSV,
		Rows:     dataRows,
		RowCount: len(dataRows),
		HasMore:  hasMore,
	}

	return &Result{Kind: KindCSV, Metadata: meta, Preview: preview}
}

// processBinary — fallback для изображений и прочих бинарных типов:
// только размер, без декодирования и превью.
func processBinary(content []byte) *Result {
	return &Result{
		Kind:     KindBinary,
		Metadata: &Metadata{SizeBytes: len(content)},
	}
}
