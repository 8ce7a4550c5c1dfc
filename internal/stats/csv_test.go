package stats

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/setsim/internal/foundation/errors"
)

func TestWriteThenReadPreservesTable(t *testing.T) {
	tbl := make(Table)
	tbl.Merge(sampleGame())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))
	assert.True(t, strings.HasPrefix(buf.String(), "sets,cubes,faces,edges,vertices,hand_size,deals,hand_type,count\n"))

	got := make(Table)
	rows, err := Read(&buf, "mem", got)
	require.NoError(t, err)
	assert.Equal(t, len(tbl), rows)
	assert.Equal(t, tbl, got)
}

func TestReadLegacyLayouts(t *testing.T) {
	t.Run("set count with hand type", func(t *testing.T) {
		in := "sets,hand_size,deals,hand_type,count\n3,12,0,ascending,5\n0,9,4,descending,2\n"
		got := make(Table)
		_, err := Read(strings.NewReader(in), "legacy.csv", got)
		require.NoError(t, err)
		assert.Equal(t, Table{
			{Sets: 3, HandSize: 12, HandType: Ascending}:           5,
			{Sets: 0, HandSize: 9, Deals: 4, HandType: Descending}: 2,
		}, got)
	})

	t.Run("class breakdown without hand type", func(t *testing.T) {
		in := "cubes,faces,edges,vertices,hand_size,deals,count\n1,2,0,1,15,7,11\n"
		got := make(Table)
		_, err := Read(strings.NewReader(in), "classes.csv", got)
		require.NoError(t, err)
		assert.Equal(t, Table{
			{Sets: 4, Cubes: 1, Faces: 2, Vertices: 1, HandSize: 15, Deals: 7}: 11,
		}, got)
	})

	t.Run("reordered columns", func(t *testing.T) {
		in := "count,deals,hand_type,hand_size,sets\n9,2,ascending,12,6\n"
		got := make(Table)
		_, err := Read(strings.NewReader(in), "reordered.csv", got)
		require.NoError(t, err)
		assert.Equal(t, uint64(9), got[Info{Sets: 6, HandSize: 12, Deals: 2, HandType: Ascending}])
	})
}

func TestReadAccumulates(t *testing.T) {
	in := "sets,hand_size,deals,hand_type,count\n3,12,0,ascending,5\n"
	tbl := Table{{Sets: 3, HandSize: 12, HandType: Ascending}: 1}
	_, err := Read(strings.NewReader(in), "a.csv", tbl)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), tbl[Info{Sets: 3, HandSize: 12, HandType: Ascending}])
}

func TestReadRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column string
	}{
		{"bad count", "sets,hand_size,deals,hand_type,count\n3,12,0,ascending,5\n1,12,0,ascending,many\n", 3, ColCount},
		{"negative deals", "sets,hand_size,deals,count\n1,12,-1,4\n", 2, ColDeals},
		{"bad hand type", "sets,hand_size,deals,hand_type,count\n1,12,0,sideways,4\n", 2, ColHandType},
		{"missing count column", "sets,hand_size,deals\n1,12,0\n", 1, ColCount},
		{"no set columns", "hand_size,deals,count\n12,0,4\n", 1, ColCubes},
		{"unknown column", "sets,hand_size,deals,colour,count\n1,12,0,red,4\n", 1, "colour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := Table{{Sets: 1}: 1}
			_, err := Read(strings.NewReader(tt.input), "bad.csv", tbl)
			require.Error(t, err)

			ce, ok := ferrors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, ferrors.CategoryParse, ce.Category())
			line, _ := ce.Context().Get("line")
			assert.Equal(t, tt.line, line)
			col, _ := ce.Context().GetString("column")
			assert.Equal(t, tt.column, col)

			assert.Equal(t, Table{{Sets: 1}: 1}, tbl, "failed read must not touch the table")
		})
	}

	t.Run("ragged row", func(t *testing.T) {
		_, err := Read(strings.NewReader("sets,hand_size,deals,count\n1,12\n"), "ragged.csv", make(Table))
		require.True(t, ferrors.HasCategory(err, ferrors.CategoryParse))
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Read(strings.NewReader(""), "empty.csv", make(Table))
		require.True(t, ferrors.HasCategory(err, ferrors.CategoryParse))
	})
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dir, RunFileName("run", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), "abc"))
	assert.Equal(t, "run-20240301T120000Z-abc.csv", filepath.Base(path))

	tbl := make(Table)
	tbl.Merge(sampleGame())
	require.NoError(t, SaveFile(path, tbl))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")

	got := make(Table)
	_, err = LoadFile(path, got)
	require.NoError(t, err)
	assert.Equal(t, tbl, got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.csv"), make(Table))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestConsolidate(t *testing.T) {
	dir := t.TempDir()
	a := Table{{Sets: 2, HandSize: 12, HandType: Ascending}: 3}
	b := Table{{Sets: 2, HandSize: 12, HandType: Ascending}: 4, {Sets: 0, HandSize: 15, Deals: 9, HandType: Ascending}: 1}
	require.NoError(t, SaveFile(filepath.Join(dir, "run-1.csv"), a))
	require.NoError(t, SaveFile(filepath.Join(dir, "run-2.csv"), b))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, SaveFile(filepath.Join(dir, "data.csv"), a))

	files, err := DataFiles(dir, filepath.Join(dir, "data.csv"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	merged, err := Consolidate(files)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), merged[Info{Sets: 2, HandSize: 12, HandType: Ascending}])
	assert.Equal(t, uint64(8), merged.Total())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "run-3.csv"), []byte("sets,hand_size,deals,count\nx,1,1,1\n"), 0o644))
	files, err = DataFiles(dir)
	require.NoError(t, err)
	_, err = Consolidate(files)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryParse))
}
