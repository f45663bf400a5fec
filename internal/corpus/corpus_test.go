package corpus

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int64
	}{
		{"empty", "", 0},
		{"single terminated", "CASSF\n", 1},
		{"single unterminated", "CASSF", 1},
		{"three terminated", "a\nb\nc\n", 3},
		{"three unterminated", "a\nb\nc", 3},
		{"blank lines count", "a\n\nb\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CountLines(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountLinesRewinds(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 1000; i++ {
		sb.WriteString("CASSLGQGAYEQYF\n")
	}
	path := writeFile(t, t.TempDir(), "seqs.txt", sb.String())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n, err := CountLines(f)
	require.NoError(t, err)
	require.Equal(t, int64(1000), n)

	pos, err := f.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Zero(t, pos, "reader must be rewound after counting")

	seqs, err := Read(f, "")
	require.NoError(t, err)
	assert.Len(t, seqs, int(n), "a full read after counting must see every line")
}

func TestCountFileLines(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.tsv", "cdr3\nA\nB\n")

	n, err := CountFileLines(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = CountFileLines(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRead_Column(t *testing.T) {
	tests := []struct {
		name    string
		content string
		column  string
		want    []string
	}{
		{
			name:    "tab separated",
			content: "id\tcdr3\tv_gene\n1\tCASSF\tTRBV1\n2\tCASRW\tTRBV2\n",
			column:  "cdr3",
			want:    []string{"CASSF", "CASRW"},
		},
		{
			name:    "comma separated",
			content: "cdr3,count\nCASSF,3\nCASRW,1\n",
			column:  "cdr3",
			want:    []string{"CASSF", "CASRW"},
		},
		{
			name:    "empty cells and short rows skipped",
			content: "id,cdr3\n1,CASSF\n2,\n3\n4,CAW\n",
			column:  "cdr3",
			want:    []string{"CASSF", "CAW"},
		},
		{
			name:    "crlf line endings",
			content: "cdr3\r\nCASSF\r\nCAW\r\n",
			column:  "cdr3",
			want:    []string{"CASSF", "CAW"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.content), tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRead_MissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("a\tb\n1\t2\n"), "cdr3")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestRead_EmptyInput(t *testing.T) {
	got, err := Read(strings.NewReader(""), "cdr3")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRead_Lines(t *testing.T) {
	got, err := Read(strings.NewReader("CASSF\r\nCAW\n"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CASSF", "CAW"}, got)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sample.tsv", "cdr3\nCASSF\n")

	got, err := Load(path, "cdr3")
	require.NoError(t, err)
	assert.Equal(t, []string{"CASSF"}, got)

	_, err = Load(path, "junction")
	assert.ErrorIs(t, err, ErrColumnNotFound)
	assert.Contains(t, err.Error(), path)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.tsv", "x\n")
	writeFile(t, dir, "a.tsv", "x\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	writeFile(t, filepath.Join(dir, "nested"), "c.tsv", "x\n")

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.tsv"), filepath.Join(dir, "b.tsv")}, files)

	_, err = ListFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "sample", BaseName("/data/sample.tsv"))
	assert.Equal(t, "sample.clean", BaseName("sample.clean.csv"))
	assert.Equal(t, "noext", BaseName("noext"))
}
