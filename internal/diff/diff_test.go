package diff

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func mustCompare(t *testing.T, oldData, newData string) *FileDiff {
	t.Helper()
	fd, err := Compare([]byte(oldData), []byte(newData), "a", "b")
	if err != nil {
		t.Fatalf("Compare() ошибка: %v", err)
	}
	return fd
}

func TestCompare_Identical(t *testing.T) {
	fd := mustCompare(t, "line1\nline2\n", "line1\nline2\n")
	if !fd.Identical() {
		t.Errorf("идентичные входы дали %d ханков, ожидается 0", len(fd.Hunks))
	}
}

func TestCompare_BothEmpty(t *testing.T) {
	fd := mustCompare(t, "", "")
	if !fd.Identical() {
		t.Errorf("пустые входы дали %d ханков, ожидается 0", len(fd.Hunks))
	}
}

func TestCompare_EmptyOldNonEmptyNew(t *testing.T) {
	fd := mustCompare(t, "", "one\ntwo\n")
	if len(fd.Hunks) != 1 {
		t.Fatalf("ханков = %d, ожидается 1", len(fd.Hunks))
	}

	h := fd.Hunks[0]
	// Старый диапазон пуст: (0,0)
	if h.OldStart != 0 || h.OldLen != 0 {
		t.Errorf("старый диапазон = (%d,%d), ожидается (0,0)", h.OldStart, h.OldLen)
	}
	if h.NewStart != 1 || h.NewLen != 2 {
		t.Errorf("новый диапазон = (%d,%d), ожидается (1,2)", h.NewStart, h.NewLen)
	}
	for _, ln := range h.Lines {
		if ln.Kind != Add {
			t.Errorf("строка %q имеет тип %s, ожидается add", ln.Text, ln.Kind)
		}
		if ln.OldNumber != nil {
			t.Errorf("строка add имеет старый номер %d", *ln.OldNumber)
		}
	}
}

func TestCompare_SingleLineChange(t *testing.T) {
	// line2 → line2 changed: context + delete + add
	fd := mustCompare(t, "line1\nline2\n", "line1\nline2 changed\n")
	if len(fd.Hunks) != 1 {
		t.Fatalf("ханков = %d, ожидается 1", len(fd.Hunks))
	}

	lines := fd.Hunks[0].Lines
	if len(lines) != 3 {
		t.Fatalf("строк в ханке = %d, ожидается 3", len(lines))
	}
	if lines[0].Kind != Context || lines[0].Text != "line1" {
		t.Errorf("строка 0 = %s %q, ожидается context line1", lines[0].Kind, lines[0].Text)
	}
	if lines[1].Kind != Delete || lines[1].Text != "line2" {
		t.Errorf("строка 1 = %s %q, ожидается delete line2", lines[1].Kind, lines[1].Text)
	}
	if lines[2].Kind != Add || lines[2].Text != "line2 changed" {
		t.Errorf("строка 2 = %s %q, ожидается add line2 changed", lines[2].Kind, lines[2].Text)
	}

	// Удаление идёт перед вставкой
	if lines[1].OldNumber == nil || *lines[1].OldNumber != 2 {
		t.Error("delete без старого номера строки 2")
	}
	if lines[2].NewNumber == nil || *lines[2].NewNumber != 2 {
		t.Error("add без нового номера строки 2")
	}
}

func TestCompare_TrailingWhitespaceIsReplace(t *testing.T) {
	// Различие только в хвостовом пробеле — всё равно replace:
	// равенство строк строго байтовое
	fd := mustCompare(t, "line\n", "line \n")
	if len(fd.Hunks) != 1 {
		t.Fatalf("ханков = %d, ожидается 1", len(fd.Hunks))
	}
	kinds := []LineKind{}
	for _, ln := range fd.Hunks[0].Lines {
		kinds = append(kinds, ln.Kind)
	}
	if !reflect.DeepEqual(kinds, []LineKind{Delete, Add}) {
		t.Errorf("типы строк = %v, ожидается [delete add]", kinds)
	}
}

func TestCompare_MissingTrailingNewline(t *testing.T) {
	// Отсутствие перевода строки в конце — значимое различие
	fd := mustCompare(t, "line1\nline2\n", "line1\nline2")
	if fd.Identical() {
		t.Fatal("отсутствие перевода строки не распознано как изменение")
	}

	var adds []Line
	for _, ln := range fd.Hunks[0].Lines {
		if ln.Kind == Add {
			adds = append(adds, ln)
		}
	}
	if len(adds) != 1 || !adds[0].MissingNewline {
		t.Error("строка без перевода строки не помечена MissingNewline")
	}
}

func TestCompare_SeparateHunks(t *testing.T) {
	// Изменения, разделённые более чем 2×context равных строк,
	// попадают в разные ханки
	var oldSB, newSB strings.Builder
	for i := 1; i <= 20; i++ {
		line := "common\n"
		oldSB.WriteString(line)
		newSB.WriteString(line)
	}
	oldText := "first old\n" + oldSB.String() + "last old\n"
	newText := "first new\n" + newSB.String() + "last new\n"

	fd := mustCompare(t, oldText, newText)
	if len(fd.Hunks) != 2 {
		t.Fatalf("ханков = %d, ожидается 2", len(fd.Hunks))
	}

	// Контекст каждого ханка не превышает 3 строк с каждой стороны
	for _, h := range fd.Hunks {
		ctx := 0
		for _, ln := range h.Lines {
			if ln.Kind == Context {
				ctx++
			}
		}
		if ctx > 2*contextLines {
			t.Errorf("ханк %s содержит %d контекстных строк", h.Header, ctx)
		}
	}
}

func TestCompare_HunkHeader(t *testing.T) {
	fd := mustCompare(t, "a\nb\nc\n", "a\nB\nc\n")
	if len(fd.Hunks) != 1 {
		t.Fatalf("ханков = %d, ожидается 1", len(fd.Hunks))
	}
	if fd.Hunks[0].Header != "@@ -1,3 +1,3 @@" {
		t.Errorf("заголовок = %q, ожидается @@ -1,3 +1,3 @@", fd.Hunks[0].Header)
	}
}

func TestCompare_InvalidUTF8(t *testing.T) {
	invalid := []byte{0xff, 0xfe, 0x00}

	if _, err := Compare(invalid, []byte("text\n"), "", ""); !errors.Is(err, ErrNotDiffable) {
		t.Errorf("Compare(невалидный old) = %v, ожидается ErrNotDiffable", err)
	}
	if _, err := Compare([]byte("text\n"), invalid, "", ""); !errors.Is(err, ErrNotDiffable) {
		t.Errorf("Compare(невалидный new) = %v, ожидается ErrNotDiffable", err)
	}
}

func TestCompare_Symmetry(t *testing.T) {
	oldText := "one\ntwo\nthree\nfour\n"
	newText := "one\n2\nthree\nfive\nsix\n"

	forward := mustCompare(t, oldText, newText)
	backward := mustCompare(t, newText, oldText)

	collect := func(fd *FileDiff, kind LineKind) []string {
		var texts []string
		for _, h := range fd.Hunks {
			for _, ln := range h.Lines {
				if ln.Kind == kind {
					texts = append(texts, ln.Text)
				}
			}
		}
		return texts
	}

	// Каждому add в одну сторону соответствует delete в обратную
	if !reflect.DeepEqual(collect(forward, Add), collect(backward, Delete)) {
		t.Error("add прямого diff не совпадают с delete обратного")
	}
	if !reflect.DeepEqual(collect(forward, Delete), collect(backward, Add)) {
		t.Error("delete прямого diff не совпадают с add обратного")
	}
}

func TestCompare_Deterministic(t *testing.T) {
	oldText := "a\nb\nc\nd\ne\n"
	newText := "a\nx\nc\ny\nz\n"

	first := mustCompare(t, oldText, newText)
	second := mustCompare(t, oldText, newText)
	if !reflect.DeepEqual(first, second) {
		t.Error("повторный Compare() дал другой результат")
	}
}

// --- Round-trip: Apply(old, diff(old, new)) == new ---

func TestApply_RoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		oldText string
		newText string
	}{
		{"замена строки", "line1\nline2\n", "line1\nline2 changed\n"},
		{"пустой старый", "", "one\ntwo\n"},
		{"пустой новый", "one\ntwo\n", ""},
		{"без изменений", "same\n", "same\n"},
		{"без перевода строки", "a\nb\n", "a\nb"},
		{"добавление перевода строки", "a\nb", "a\nb\n"},
		{"вставка в начало", "b\nc\n", "a\nb\nc\n"},
		{"удаление из середины", "a\nb\nc\n", "a\nc\n"},
		{
			"далёкие изменения",
			"x\n1\n2\n3\n4\n5\n6\n7\n8\n9\n10\ny\n",
			"X\n1\n2\n3\n4\n5\n6\n7\n8\n9\n10\nY\n",
		},
		{"кириллица", "привет\nмир\n", "привет\nвесь мир\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fd := mustCompare(t, c.oldText, c.newText)

			got, err := Apply([]byte(c.oldText), fd)
			if err != nil {
				t.Fatalf("Apply() ошибка: %v", err)
			}
			if !bytes.Equal(got, []byte(c.newText)) {
				t.Errorf("Apply() = %q, ожидается %q", got, c.newText)
			}
		})
	}
}

func TestApply_Mismatch(t *testing.T) {
	fd := mustCompare(t, "line1\nline2\n", "line1\nchanged\n")

	// Применение к другому тексту — ошибка, не тихая порча
	if _, err := Apply([]byte("совсем другой текст\n"), fd); !errors.Is(err, ErrPatchMismatch) {
		t.Errorf("Apply() к чужому тексту = %v, ожидается ErrPatchMismatch", err)
	}
}

// --- Split view ---

func TestSplitRows_ReplacePairing(t *testing.T) {
	// 2 удаления + 3 вставки: 3 строки, последняя с пустой левой колонкой
	fd := mustCompare(t, "ctx\ndel1\ndel2\n", "ctx\nadd1\nadd2\nadd3\n")
	if len(fd.Hunks) != 1 {
		t.Fatalf("ханков = %d, ожидается 1", len(fd.Hunks))
	}

	rows := SplitRows(&fd.Hunks[0])
	if len(rows) != 4 {
		t.Fatalf("строк split = %d, ожидается 4 (context + 3 пары)", len(rows))
	}

	// context — обе колонки
	if rows[0].Left == nil || rows[0].Right == nil || rows[0].Left.Text != "ctx" {
		t.Error("контекстная строка не заполнила обе колонки")
	}
	// Пары replace
	if rows[1].Left == nil || rows[1].Left.Text != "del1" || rows[1].Right == nil || rows[1].Right.Text != "add1" {
		t.Error("первая пара replace собрана неверно")
	}
	if rows[2].Left == nil || rows[2].Left.Text != "del2" || rows[2].Right == nil || rows[2].Right.Text != "add2" {
		t.Error("вторая пара replace собрана неверно")
	}
	// Лишняя вставка — пустая левая колонка
	if rows[3].Left != nil || rows[3].Right == nil || rows[3].Right.Text != "add3" {
		t.Error("непарная вставка должна иметь пустую левую колонку")
	}
}

func TestSplitRows_LoneInsert(t *testing.T) {
	fd := mustCompare(t, "a\nb\n", "a\nnew\nb\n")
	if len(fd.Hunks) != 1 {
		t.Fatalf("ханков = %d, ожидается 1", len(fd.Hunks))
	}

	rows := SplitRows(&fd.Hunks[0])
	found := false
	for _, r := range rows {
		if r.Left == nil && r.Right != nil && r.Right.Text == "new" {
			found = true
		}
	}
	if !found {
		t.Error("одиночная вставка не дала строку с пустой левой колонкой")
	}
}

func TestSplitRows_Deterministic(t *testing.T) {
	fd := mustCompare(t, "a\nb\nc\n", "a\nB\nC\nd\n")
	if len(fd.Hunks) != 1 {
		t.Fatalf("ханков = %d, ожидается 1", len(fd.Hunks))
	}

	first := SplitRows(&fd.Hunks[0])
	second := SplitRows(&fd.Hunks[0])
	if !reflect.DeepEqual(first, second) {
		t.Error("повторный SplitRows() дал другой результат")
	}
}

// --- Unified ---

func TestFormatUnified(t *testing.T) {
	fd := mustCompare(t, "line1\nline2\n", "line1\nline2 changed\n")

	out := FormatUnified(fd)
	expected := "--- a\n+++ b\n@@ -1,2 +1,2 @@\n line1\n-line2\n+line2 changed\n"
	if out != expected {
		t.Errorf("FormatUnified() =\n%q\nожидается\n%q", out, expected)
	}
}

func TestFormatUnified_NoNewlineMarker(t *testing.T) {
	fd := mustCompare(t, "a\n", "a")

	out := FormatUnified(fd)
	if !strings.Contains(out, "\\ No newline at end of file") {
		t.Errorf("FormatUnified() без маркера отсутствия перевода строки:\n%s", out)
	}
}
