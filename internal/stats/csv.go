package stats

import (
	"encoding/csv"
	stderrors "errors"
	"io"
	"slices"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
)

// Column names of the persisted format.
const (
	ColSets     = "sets"
	ColCubes    = "cubes"
	ColFaces    = "faces"
	ColEdges    = "edges"
	ColVertices = "vertices"
	ColHandSize = "hand_size"
	ColDeals    = "deals"
	ColHandType = "hand_type"
	ColCount    = "count"
)

// Header is the column layout written by Write.
var Header = []string{ColSets, ColCubes, ColFaces, ColEdges, ColVertices, ColHandSize, ColDeals, ColHandType, ColCount}

var classColumns = []string{ColCubes, ColFaces, ColEdges, ColVertices}

// Write encodes t with Header, one row per key in Compare order.
func Write(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	row := make([]string, len(Header))
	for _, info := range t.Keys() {
		row[0] = strconv.Itoa(info.Sets)
		row[1] = strconv.Itoa(info.Cubes)
		row[2] = strconv.Itoa(info.Faces)
		row[3] = strconv.Itoa(info.Edges)
		row[4] = strconv.Itoa(info.Vertices)
		row[5] = strconv.Itoa(info.HandSize)
		row[6] = strconv.Itoa(info.Deals)
		row[7] = string(info.HandType)
		row[8] = strconv.FormatUint(t[info], 10)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read decodes a statistics table from r and adds its counts into into. name
// identifies the source in errors. Columns may appear in any order; the
// narrower historical layouts without class or hand type columns are
// accepted. Any malformed row aborts the read and leaves into untouched.
func Read(r io.Reader, name string, into Table) (int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return 0, parseError(name, 1, "", "missing header", nil)
	}
	if err != nil {
		return 0, parseError(name, 1, "", "unreadable header", err)
	}
	cols, err := columns(name, header)
	if err != nil {
		return 0, err
	}

	parsed := make(Table)
	rows := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if stderrors.As(err, &pe) {
				line = pe.Line
			}
			return 0, parseError(name, line, "", "malformed row", err)
		}
		line, _ := cr.FieldPos(0)
		info, count, err := decodeRow(name, line, cols, record)
		if err != nil {
			return 0, err
		}
		parsed.Add(info, count)
		rows++
	}
	into.MergeTable(parsed)
	return rows, nil
}

func columns(name string, header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if !isKnownColumn(key) {
			return nil, parseError(name, 1, h, "unknown column", nil)
		}
		if _, dup := cols[key]; dup {
			return nil, parseError(name, 1, h, "duplicate column", nil)
		}
		cols[key] = i
	}
	for _, required := range []string{ColHandSize, ColDeals, ColCount} {
		if _, ok := cols[required]; !ok {
			return nil, parseError(name, 1, required, "missing required column", nil)
		}
	}
	if _, ok := cols[ColSets]; !ok {
		for _, c := range classColumns {
			if _, ok := cols[c]; !ok {
				return nil, parseError(name, 1, c, "need a sets column or all four class columns", nil)
			}
		}
	}
	return cols, nil
}

func isKnownColumn(c string) bool {
	return slices.Contains(Header, c)
}

func decodeRow(name string, line int, cols map[string]int, record []string) (Info, uint64, error) {
	var info Info
	field := func(col string) (string, bool) {
		i, ok := cols[col]
		if !ok {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}
	num := func(col string, dst *int) error {
		raw, ok := field(col)
		if !ok {
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return parseError(name, line, col, "invalid non-negative integer", err)
		}
		*dst = v
		return nil
	}

	for _, f := range []struct {
		col string
		dst *int
	}{
		{ColSets, &info.Sets}, {ColCubes, &info.Cubes}, {ColFaces, &info.Faces},
		{ColEdges, &info.Edges}, {ColVertices, &info.Vertices},
		{ColHandSize, &info.HandSize}, {ColDeals, &info.Deals},
	} {
		if err := num(f.col, f.dst); err != nil {
			return Info{}, 0, err
		}
	}

	if _, ok := cols[ColSets]; !ok {
		info.Sets = info.Cubes + info.Faces + info.Edges + info.Vertices
	}
	if raw, ok := field(ColHandType); ok {
		ht, err := ParseHandType(raw)
		if err != nil {
			return Info{}, 0, parseError(name, line, ColHandType, "invalid hand type", err)
		}
		info.HandType = ht
	}

	raw, _ := field(ColCount)
	count, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return Info{}, 0, parseError(name, line, ColCount, "invalid count", err)
	}
	return info, count, nil
}

func parseError(name string, line int, column, message string, cause error) error {
	b := errors.ParseError(message).
		WithContext("file", name).
		WithContext("line", line)
	if column != "" {
		b = b.WithContext("column", column)
	}
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b.Build()
}
