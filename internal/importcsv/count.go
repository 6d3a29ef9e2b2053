package importcsv

import (
	"bytes"
	"encoding/csv"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CountRows returns the number of data rows (excluding the header) in a CSV
// payload. A payload that isn't valid UTF-8 is treated as zero rows rather
// than an error, matching the lenient counting behavior the import flow
// relies on to size a task's total_rows before the real parse pass runs.
func CountRows(content []byte) int {
	if !utf8.Valid(content) {
		return 0
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	total := 0
	for {
		_, err := reader.Read()
		if err != nil {
			break
		}
		total++
	}
	if total == 0 {
		return 0
	}
	return total - 1
}
