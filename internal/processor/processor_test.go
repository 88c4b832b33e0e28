package processor

import (
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		contentType string
		want        Kind
	}{
		{"text/plain", KindCode}, // text/* без исключений — код
		{"text/markdown", KindText},
		{"text/html", KindText},
		{"text/csv", KindCSV},
		{"application/csv", KindCSV},
		{"application/json", KindCode},
		{"application/javascript", KindCode},
		{"application/x-yaml", KindCode},
		{"text/x-python", KindCode},
		{"image/png", KindBinary},
		{"image/jpeg", KindBinary},
		{"application/pdf", KindBinary},
		{"application/octet-stream", KindBinary},
		{"TEXT/MARKDOWN", KindText},
		{"text/plain; charset=utf-8", KindCode},
		{"", KindBinary},
	}

	for _, c := range cases {
		if got := Detect(c.contentType); got != c.want {
			t.Errorf("Detect(%q) = %q, ожидается %q", c.contentType, got, c.want)
		}
	}
}

func TestProcessText(t *testing.T) {
	content := []byte("первая строка\nвторая строка\n")
	res := Process(content, "text/markdown", nil)

	if res.Kind != KindText {
		t.Fatalf("Kind = %q, ожидается text", res.Kind)
	}
	if res.Metadata.LineCount != 3 {
		t.Errorf("LineCount = %d, ожидается 3", res.Metadata.LineCount)
	}
	if res.Metadata.WordCount != 4 {
		t.Errorf("WordCount = %d, ожидается 4", res.Metadata.WordCount)
	}
	// Счётчик символов — в рунах, не байтах
	if res.Metadata.CharCount != 28 {
		t.Errorf("CharCount = %d, ожидается 28", res.Metadata.CharCount)
	}
	if res.Preview == nil || res.Preview.Truncated {
		t.Error("короткий текст не должен усекаться в превью")
	}
}

func TestProcessText_LongPreview(t *testing.T) {
	content := []byte(strings.Repeat("ж", 600))
	res := Process(content, "text/markdown", nil)

	if !res.Preview.Truncated {
		t.Error("длинный текст должен усекаться")
	}
	if got := len([]rune(res.Preview.Text)); got != 500 {
		t.Errorf("длина превью = %d рун, ожидается 500", got)
	}
}

func TestProcessCode(t *testing.T) {
	hint := "Go"
	content := []byte("package main\n\nfunc main() {}\n")
	res := Process(content, "text/plain", &hint)

	if res.Kind != KindCode {
		t.Fatalf("Kind = %q, ожидается code", res.Kind)
	}
	if res.Metadata.Language != "go" {
		t.Errorf("Language = %q, ожидается go (подсказка нормализуется)", res.Metadata.Language)
	}
	if res.Metadata.LineCount != 4 {
		t.Errorf("LineCount = %d, ожидается 4", res.Metadata.LineCount)
	}
	if res.Preview.Language != "go" {
		t.Errorf("Preview.Language = %q, ожидается go", res.Preview.Language)
	}
}

func TestProcessCode_NoHint(t *testing.T) {
	res := Process([]byte("x = 1\n"), "text/plain", nil)
	if res.Metadata.Language != "text" {
		t.Errorf("Language без подсказки = %q, ожидается text", res.Metadata.Language)
	}

	auto := "auto"
	res = Process([]byte("x = 1\n"), "text/plain", &auto)
	if res.Metadata.Language != "text" {
		t.Errorf("Language с подсказкой auto = %q, ожидается text", res.Metadata.Language)
	}
}

func TestProcessCSV(t *testing.T) {
	content := []byte("name,age\nalice,30\nbob,25\n")
	res := Process(content, "text/csv", nil)

	if res.Kind != KindCSV {
		t.Fatalf("Kind = %q, ожидается csv", res.Kind)
	}
	if len(res.Metadata.Columns) != 2 || res.Metadata.Columns[0] != "name" {
		t.Errorf("Columns = %v, ожидается [name age]", res.Metadata.Columns)
	}
	// Заголовок не считается строкой данных
	if res.Metadata.RowCount != 2 {
		t.Errorf("RowCount = %d, ожидается 2", res.Metadata.RowCount)
	}
	if res.Metadata.ColumnCount != 2 {
		t.Errorf("ColumnCount = %d, ожидается 2", res.Metadata.ColumnCount)
	}
	if res.Preview.HasMore {
		t.Error("HasMore = true при двух строках данных")
	}
}

func TestProcessCSV_PreviewLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id,value\n")
	for i := 0; i < 25; i++ {
		sb.WriteString("1,x\n")
	}
	res := Process([]byte(sb.String()), "text/csv", nil)

	if res.Metadata.RowCount != 25 {
		t.Errorf("RowCount = %d, ожидается 25", res.Metadata.RowCount)
	}
	if len(res.Preview.Rows) != 10 {
		t.Errorf("строк в превью = %d, ожидается 10", len(res.Preview.Rows))
	}
	if !res.Preview.HasMore {
		t.Error("HasMore = false при 25 строках данных")
	}
}

func TestProcessCSV_Invalid(t *testing.T) {
	// Неразбираемый CSV обрабатывается как текст
	content := []byte("\"unterminated\nquote,field\n")
	res := Process(content, "text/csv", nil)

	if res.Kind != KindText {
		t.Errorf("Kind = %q, ожидается text (fallback)", res.Kind)
	}
}

func TestProcessBinary(t *testing.T) {
	content := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a}
	res := Process(content, "image/png", nil)

	if res.Kind != KindBinary {
		t.Fatalf("Kind = %q, ожидается binary", res.Kind)
	}
	if res.Metadata.SizeBytes != 6 {
		t.Errorf("SizeBytes = %d, ожидается 6", res.Metadata.SizeBytes)
	}
	if res.Preview != nil {
		t.Error("бинарное содержимое не должно иметь превью")
	}
}

func TestProcessText_InvalidUTF8(t *testing.T) {
	content := []byte{'a', 0xff, 0xfe, 'b', '\n'}
	res := Process(content, "text/markdown", nil)

	if res.Kind != KindText {
		t.Fatalf("Kind = %q, ожидается text", res.Kind)
	}
	if !strings.Contains(res.Preview.Text, "a") || !strings.Contains(res.Preview.Text, "b") {
		t.Error("валидные символы потеряны при декодировании")
	}
}
