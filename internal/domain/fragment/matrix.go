package fragment

import (
	"sort"

	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// BuildMatrix lays a DecompositionResult out as a dense count matrix for
// group-contribution fitting.  Columns are the distinct fragment strings and
// rows the successfully decomposed molecule ids, both sorted.  counts[i][j]
// is the number of occurrences of columns[j] in rows[i].
func BuildMatrix(result *molecule.DecompositionResult) (columns, rows []string, counts [][]int) {
	if result == nil {
		return []string{}, []string{}, [][]int{}
	}

	colIndex := make(map[string]int)
	rows = make([]string, 0, len(result.Fragments))
	for id, frags := range result.Fragments {
		rows = append(rows, id)
		for k := range frags {
			colIndex[k] = 0
		}
	}
	sort.Strings(rows)

	columns = make([]string, 0, len(colIndex))
	for k := range colIndex {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	for j, k := range columns {
		colIndex[k] = j
	}

	counts = make([][]int, len(rows))
	for i, id := range rows {
		row := make([]int, len(columns))
		for k, n := range result.Fragments[id] {
			row[colIndex[k]] = n
		}
		counts[i] = row
	}
	return columns, rows, counts
}

//Personal.AI order the ending
