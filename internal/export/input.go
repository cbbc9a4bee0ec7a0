package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/autofragment/pkg/errors"
)

// InputFormat is the layout of a molecule table.
type InputFormat int

const (
	// FormatJSON is an object mapping molecule id to structure.
	FormatJSON InputFormat = iota
	// FormatCSV has id and smiles columns, with an optional header row.
	FormatCSV
	// FormatTSV is FormatCSV separated by tabs.
	FormatTSV
	// FormatSMI has one "structure [id]" pair per line.
	FormatSMI
)

func (f InputFormat) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	case FormatSMI:
		return "smi"
	default:
		return "json"
	}
}

// FormatForPath infers the input format from a file name, ignoring any
// compression suffix.  Unknown extensions are read as JSON.
func FormatForPath(path string) InputFormat {
	switch strings.ToLower(filepath.Ext(stripCompression(path))) {
	case ".csv":
		return FormatCSV
	case ".tsv", ".tab":
		return FormatTSV
	case ".smi", ".smiles":
		return FormatSMI
	default:
		return FormatJSON
	}
}

// ReadMolecules loads a molecule table from path.  Compressed inputs
// (".gz", ".zst") are decompressed transparently.
func ReadMolecules(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "failed to open input file").WithDetail(path)
	}
	defer f.Close()

	r, err := newReader(f, CompressionForPath(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to open decompressor").WithDetail(path)
	}
	defer r.Close()

	molecules, err := ParseMolecules(r, FormatForPath(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to read molecules").WithDetail(path)
	}
	return molecules, nil
}

// ParseMolecules reads a molecule table in the given format.  Molecule ids
// must be unique and non-empty.
func ParseMolecules(r io.Reader, format InputFormat) (map[string]string, error) {
	switch format {
	case FormatCSV:
		return parseDelimited(r, ',')
	case FormatTSV:
		return parseDelimited(r, '\t')
	case FormatSMI:
		return parseSMI(r)
	default:
		return parseJSON(r)
	}
}

func parseJSON(r io.Reader) (map[string]string, error) {
	var molecules map[string]string
	if err := json.NewDecoder(r).Decode(&molecules); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "input must be a JSON object of id to structure")
	}
	if molecules == nil {
		molecules = map[string]string{}
	}
	if _, ok := molecules[""]; ok {
		return nil, errors.New(errors.ErrCodeValidation, "empty molecule id")
	}
	return molecules, nil
}

func parseDelimited(r io.Reader, comma rune) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "malformed delimited input")
	}

	idCol, smilesCol := 0, 1
	if len(records) > 0 {
		if i, j, ok := headerColumns(records[0]); ok {
			idCol, smilesCol = i, j
			records = records[1:]
		}
	}

	molecules := make(map[string]string, len(records))
	for n, rec := range records {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) <= idCol || len(rec) <= smilesCol {
			return nil, errors.Newf(errors.ErrCodeValidation, "record %d has %d fields", n+1, len(rec))
		}
		if err := addMolecule(molecules, strings.TrimSpace(rec[idCol]), strings.TrimSpace(rec[smilesCol])); err != nil {
			return nil, err.WithDetailf("record %d", n+1)
		}
	}
	return molecules, nil
}

// headerColumns locates the id and smiles columns of a header row.
func headerColumns(row []string) (idCol, smilesCol int, ok bool) {
	idCol, smilesCol = -1, -1
	for i, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "id", "name", "molecule_id":
			idCol = i
		case "smiles", "structure":
			smilesCol = i
		}
	}
	return idCol, smilesCol, idCol >= 0 && smilesCol >= 0
}

// parseSMI reads "SMILES [name]" lines.  Unnamed structures are called
// mol<line>, with a numeric suffix when a named structure already uses that
// id; names are claimed first so the outcome does not depend on line order.
func parseSMI(r io.Reader) (map[string]string, error) {
	type unnamed struct {
		line   int
		smiles string
	}
	molecules := make(map[string]string)
	var pending []unnamed
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 1 {
			pending = append(pending, unnamed{line: line, smiles: fields[0]})
			continue
		}
		if err := addMolecule(molecules, fields[1], fields[0]); err != nil {
			return nil, err.WithDetailf("line %d", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to scan input")
	}

	for _, u := range pending {
		id := fmt.Sprintf("mol%d", u.line)
		for n := 2; ; n++ {
			if _, taken := molecules[id]; !taken {
				break
			}
			id = fmt.Sprintf("mol%d_%d", u.line, n)
		}
		molecules[id] = u.smiles
	}
	return molecules, nil
}

func addMolecule(molecules map[string]string, id, smiles string) *errors.AppError {
	if id == "" {
		return errors.New(errors.ErrCodeValidation, "empty molecule id")
	}
	if _, dup := molecules[id]; dup {
		return errors.Newf(errors.ErrCodeValidation, "duplicate molecule id %q", id)
	}
	molecules[id] = smiles
	return nil
}

//Personal.AI order the ending
