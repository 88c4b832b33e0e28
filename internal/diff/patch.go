package diff

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPatchMismatch — ханки не соответствуют переданному тексту.
var ErrPatchMismatch = errors.New("ханк не применим к тексту")

// Apply применяет ханки fd к старому тексту и восстанавливает новый
// байт-в-байт. Строки context и delete сверяются с текстом:
// расхождение — ErrPatchMismatch.
func Apply(oldData []byte, fd *FileDiff) ([]byte, error) {
	oldLines, err := splitKeepEnds(oldData)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	pos := 0 // текущий 0-based индекс в oldLines

	for _, h := range fd.Hunks {
		// Начало ханка в 0-based индексах старого текста
		start := h.OldStart - 1
		if h.OldLen == 0 {
			start = h.OldStart
		}
		if start < pos || start > len(oldLines) {
			return nil, fmt.Errorf("%w: ханк %s вне диапазона", ErrPatchMismatch, h.Header)
		}

		// Неизменённые строки до ханка
		for pos < start {
			sb.WriteString(oldLines[pos])
			pos++
		}

		for _, ln := range h.Lines {
			switch ln.Kind {
			case Context, Delete:
				if pos >= len(oldLines) {
					return nil, fmt.Errorf("%w: строка %d за пределами текста", ErrPatchMismatch, pos+1)
				}
				if text, _ := strings.CutSuffix(oldLines[pos], "\n"); text != ln.Text {
					return nil, fmt.Errorf("%w: строка %d не совпадает", ErrPatchMismatch, pos+1)
				}
				if ln.Kind == Context {
					sb.WriteString(oldLines[pos])
				}
				pos++
			case Add:
				sb.WriteString(ln.Text)
				if !ln.MissingNewline {
					sb.WriteByte('\n')
				}
			}
		}
	}

	// Хвост после последнего ханка
	for pos < len(oldLines) {
		sb.WriteString(oldLines[pos])
		pos++
	}

	return []byte(sb.String()), nil
}
