package diff

// SplitRow — строка side-by-side представления.
// Left либо Right равны nil, когда соответствующая сторона пуста.
type SplitRow struct {
	Left  *Line `json:"left"`
	Right *Line `json:"right"`
}

// SplitRows выводит side-by-side представление из строк ханка.
// Чистая функция от списка строк: повторный вызов даёт идентичный
// результат без повторного запуска алгоритма сравнения.
//
// Правила выравнивания:
//   - context идёт в обе колонки одной строкой;
//   - блок удалений, за которым сразу идёт блок вставок (replace),
//     спаривается построчно до max(удалений, вставок) строк,
//     короткая сторона дополняется пустыми ячейками;
//   - одиночная вставка без предшествующих удалений — строка
//     с пустой левой колонкой, одиночное удаление — с пустой правой.
func SplitRows(h *Hunk) []SplitRow {
	var rows []SplitRow

	lines := h.Lines
	i := 0
	for i < len(lines) {
		switch lines[i].Kind {
		case Context:
			rows = append(rows, SplitRow{Left: &lines[i], Right: &lines[i]})
			i++

		case Delete:
			// Блок удалений и следующий сразу за ним блок вставок
			j := i
			for j < len(lines) && lines[j].Kind == Delete {
				j++
			}
			k := j
			for k < len(lines) && lines[k].Kind == Add {
				k++
			}
			dels, adds := lines[i:j], lines[j:k]

			n := len(dels)
			if len(adds) > n {
				n = len(adds)
			}
			for r := 0; r < n; r++ {
				var row SplitRow
				if r < len(dels) {
					row.Left = &dels[r]
				}
				if r < len(adds) {
					row.Right = &adds[r]
				}
				rows = append(rows, row)
			}
			i = k

		case Add:
			// Вставка без предшествующих удалений
			rows = append(rows, SplitRow{Right: &lines[i]})
			i++
		}
	}
	return rows
}
