// Пакет diff — построчное сравнение текстов.
// Алгоритм Майерса (O(ND)) поверх строк, группировка в ханки
// с контекстом, unified и split представления без пересчёта.
//
// Движок чистый и детерминированный: никакого I/O, одинаковые
// входы всегда дают одинаковый результат.
package diff

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrNotDiffable — вход не декодируется как UTF-8 текст.
// Вызывающий код обязан перейти к сравнению метаданных,
// частичный diff не строится.
var ErrNotDiffable = errors.New("содержимое не является текстом")

// contextLines — число строк контекста вокруг изменений в ханке.
const contextLines = 3

// LineKind — тип строки в ханке.
type LineKind string

const (
	// Context — строка без изменений, присутствует с обеих сторон.
	Context LineKind = "context"
	// Delete — строка удалена из старой версии.
	Delete LineKind = "delete"
	// Add — строка добавлена в новой версии.
	Add LineKind = "add"
)

// Line — одна строка ханка.
type Line struct {
	Kind LineKind `json:"kind"`
	// Text — содержимое строки без завершающего перевода строки.
	Text string `json:"text"`
	// OldNumber — номер строки в старой версии (1-based), null для add.
	OldNumber *int `json:"old_number"`
	// NewNumber — номер строки в новой версии (1-based), null для delete.
	NewNumber *int `json:"new_number"`
	// MissingNewline — строка не завершалась переводом строки (последняя строка файла).
	MissingNewline bool `json:"missing_newline,omitempty"`
}

// Hunk — непрерывный блок изменений с контекстом.
type Hunk struct {
	// OldStart, OldLen — позиция блока в старой версии.
	// При OldLen = 0 OldStart указывает на строку перед вставкой (может быть 0).
	OldStart int `json:"old_start"`
	OldLen   int `json:"old_len"`
	// NewStart, NewLen — позиция блока в новой версии.
	NewStart int `json:"new_start"`
	NewLen   int `json:"new_len"`
	// Header — заголовок в формате @@ -oldStart,oldLen +newStart,newLen @@.
	Header string `json:"header"`
	// Lines — упорядоченные строки ханка.
	Lines []Line `json:"lines"`
}

// FileDiff — результат сравнения двух текстов.
type FileDiff struct {
	OldLabel string `json:"old_label,omitempty"`
	NewLabel string `json:"new_label,omitempty"`
	// Hunks пуст, если тексты идентичны.
	Hunks []Hunk `json:"hunks"`
}

// Identical сообщает, что различий нет.
func (fd *FileDiff) Identical() bool {
	return len(fd.Hunks) == 0
}

// Compare строит построчный diff между старой и новой версиями.
// Возвращает ErrNotDiffable, если любой из входов — не валидный UTF-8.
func Compare(oldData, newData []byte, oldLabel, newLabel string) (*FileDiff, error) {
	oldLines, err := splitKeepEnds(oldData)
	if err != nil {
		return nil, err
	}
	newLines, err := splitKeepEnds(newData)
	if err != nil {
		return nil, err
	}

	codes := opcodes(oldLines, newLines)
	groups := groupOpcodes(codes, contextLines)

	fd := &FileDiff{OldLabel: oldLabel, NewLabel: newLabel}
	for _, group := range groups {
		fd.Hunks = append(fd.Hunks, buildHunk(group, oldLines, newLines))
	}
	return fd, nil
}

// splitKeepEnds разбивает текст на строки, сохраняя переводы строк.
// Завершающая строка без перевода — тоже строка.
// Сравнение идёт по строкам вместе с терминаторами: точное байтовое равенство.
func splitKeepEnds(data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, ErrNotDiffable
	}
	if len(data) == 0 {
		return nil, nil
	}

	s := string(data)
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines, nil
}

// --- Алгоритм Майерса ---

// lcsMatches возвращает пары совпадающих индексов (old, new)
// в порядке возрастания — наибольшую общую подпоследовательность.
func lcsMatches(a, b []string) [][2]int {
	n, m := len(a), len(b)
	maxD := n + m
	if maxD == 0 {
		return nil
	}

	offset := maxD
	v := make([]int, 2*maxD+1)
	var trace [][]int

	dFinal := -1
search:
	for d := 0; d <= maxD; d++ {
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int
			// Выбор хода вниз (вставка) либо вправо (удаление).
			// При равенстве путей предпочитается удаление:
			// удаления группируются перед вставками.
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k

			// Снейк: пропускаем совпадающие строки
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x

			if x >= n && y >= m {
				dFinal = d
				break search
			}
		}
	}

	// Обратный проход: собираем совпадения по трассе
	var matches [][2]int
	x, y := n, m
	for d := dFinal; d > 0; d-- {
		prev := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && prev[offset+k-1] < prev[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := prev[offset+prevK]
		prevY := prevX - prevK

		// Совпадения внутри снейка
		for x > prevX && y > prevY {
			matches = append(matches, [2]int{x - 1, y - 1})
			x--
			y--
		}
		x = prevX
		y = prevY
	}
	// Начальный снейк при d = 0
	for x > 0 && y > 0 {
		matches = append(matches, [2]int{x - 1, y - 1})
		x--
		y--
	}

	// matches собраны с конца — разворачиваем
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	return matches
}

// opType — тип участка редактирующего скрипта.
type opType int

const (
	opEqual opType = iota
	opDelete
	opInsert
	opReplace
)

// opcode — участок редактирующего скрипта:
// a[I1:I2] соответствует b[J1:J2].
type opcode struct {
	op             opType
	i1, i2, j1, j2 int
}

// opcodes строит редактирующий скрипт из совпадений LCS.
// Между совпадениями удаления всегда предшествуют вставкам.
func opcodes(a, b []string) []opcode {
	matches := lcsMatches(a, b)

	var codes []opcode
	ai, bj := 0, 0

	emitGap := func(i2, j2 int) {
		switch {
		case ai < i2 && bj < j2:
			codes = append(codes, opcode{opReplace, ai, i2, bj, j2})
		case ai < i2:
			codes = append(codes, opcode{opDelete, ai, i2, bj, bj})
		case bj < j2:
			codes = append(codes, opcode{opInsert, ai, ai, bj, j2})
		}
	}

	idx := 0
	for idx < len(matches) {
		mi, mj := matches[idx][0], matches[idx][1]
		emitGap(mi, mj)

		// Склеиваем подряд идущие совпадения в один equal
		ei, ej := mi, mj
		for idx < len(matches) && matches[idx][0] == ei && matches[idx][1] == ej {
			ei++
			ej++
			idx++
		}
		codes = append(codes, opcode{opEqual, mi, ei, mj, ej})
		ai, bj = ei, ej
	}
	emitGap(len(a), len(b))

	return codes
}

// groupOpcodes группирует скрипт в ханки с контекстом n строк.
// Участки equal длиннее 2n разрезают последовательность на отдельные ханки.
func groupOpcodes(codes []opcode, n int) [][]opcode {
	if len(codes) == 0 {
		return nil
	}

	// Идентичные входы — ни одного ханка
	if len(codes) == 1 && codes[0].op == opEqual {
		return nil
	}

	// Обрезаем крайние equal до n строк контекста
	work := make([]opcode, len(codes))
	copy(work, codes)

	if first := &work[0]; first.op == opEqual {
		if first.i2-first.i1 > n {
			first.i1 = first.i2 - n
			first.j1 = first.j2 - n
		}
	}
	if last := &work[len(work)-1]; last.op == opEqual {
		if last.i2-last.i1 > n {
			last.i2 = last.i1 + n
			last.j2 = last.j1 + n
		}
	}

	var groups [][]opcode
	var group []opcode
	for _, c := range work {
		// Длинный equal в середине — разрез на два ханка
		if c.op == opEqual && c.i2-c.i1 > 2*n && len(group) > 0 {
			group = append(group, opcode{opEqual, c.i1, c.i1 + n, c.j1, c.j1 + n})
			groups = append(groups, group)
			group = []opcode{{opEqual, c.i2 - n, c.i2, c.j2 - n, c.j2}}
			continue
		}
		group = append(group, c)
	}
	if len(group) > 0 {
		groups = append(groups, group)
	}
	return groups
}

// buildHunk собирает ханк из группы опкодов.
func buildHunk(group []opcode, a, b []string) Hunk {
	first, last := group[0], group[len(group)-1]
	h := Hunk{
		OldStart: first.i1 + 1,
		OldLen:   last.i2 - first.i1,
		NewStart: first.j1 + 1,
		NewLen:   last.j2 - first.j1,
	}
	// Для пустого диапазона стартовый номер — строка перед вставкой
	if h.OldLen == 0 {
		h.OldStart--
	}
	if h.NewLen == 0 {
		h.NewStart--
	}
	h.Header = fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLen, h.NewStart, h.NewLen)

	for _, c := range group {
		switch c.op {
		case opEqual:
			for off := 0; c.i1+off < c.i2; off++ {
				oldN, newN := c.i1+off+1, c.j1+off+1
				h.Lines = append(h.Lines, makeLine(Context, a[c.i1+off], &oldN, &newN))
			}
		case opDelete, opReplace:
			for i := c.i1; i < c.i2; i++ {
				oldN := i + 1
				h.Lines = append(h.Lines, makeLine(Delete, a[i], &oldN, nil))
			}
		}
		// replace: удаления перед вставками
		switch c.op {
		case opInsert, opReplace:
			for j := c.j1; j < c.j2; j++ {
				newN := j + 1
				h.Lines = append(h.Lines, makeLine(Add, b[j], nil, &newN))
			}
		}
	}
	return h
}

// makeLine строит Line из строки с терминатором.
func makeLine(kind LineKind, raw string, oldN, newN *int) Line {
	text, ok := strings.CutSuffix(raw, "\n")
	return Line{
		Kind:           kind,
		Text:           text,
		OldNumber:      oldN,
		NewNumber:      newN,
		MissingNewline: !ok,
	}
}

// FormatUnified выводит diff в текстовом unified-формате.
func FormatUnified(fd *FileDiff) string {
	var sb strings.Builder
	if fd.OldLabel != "" || fd.NewLabel != "" {
		fmt.Fprintf(&sb, "--- %s\n", fd.OldLabel)
		fmt.Fprintf(&sb, "+++ %s\n", fd.NewLabel)
	}
	for _, h := range fd.Hunks {
		sb.WriteString(h.Header)
		sb.WriteByte('\n')
		for _, ln := range h.Lines {
			switch ln.Kind {
			case Context:
				sb.WriteByte(' ')
			case Delete:
				sb.WriteByte('-')
			case Add:
				sb.WriteByte('+')
			}
			sb.WriteString(ln.Text)
			sb.WriteByte('\n')
			if ln.MissingNewline {
				sb.WriteString("\\ No newline at end of file\n")
			}
		}
	}
	return sb.String()
}
