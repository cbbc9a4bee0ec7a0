package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/turtacn/autofragment/internal/domain/fragment"
	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

// WriteMatrixCSV writes the count matrix of result as CSV: a header of "id"
// followed by the fragment columns, then one row per decomposed molecule.
func WriteMatrixCSV(w io.Writer, result *molecule.DecompositionResult) error {
	columns, rows, counts := fragment.BuildMatrix(result)

	cw := csv.NewWriter(w)
	header := append([]string{"id"}, columns...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to write matrix header")
	}
	record := make([]string, len(columns)+1)
	for i, id := range rows {
		record[0] = id
		for j, n := range counts[i] {
			record[j+1] = strconv.Itoa(n)
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to write matrix row").WithDetail(id)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to flush matrix")
	}
	return nil
}

//Personal.AI order the ending
