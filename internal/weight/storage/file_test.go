package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/2beens/weightcontrol/internal/weight"
	"github.com/2beens/weightcontrol/internal/weight/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// legacy layout on purpose: a rewrite would normalize it
const legacyCSV = `date,weight_lbs,food,exer,avg_7d
2024-01-10,180.4,5,1,
2024-01-12,180.0,4,0,
2024-01-11,180.2,6,0,
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weight.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileBlob_AppendAndReload(t *testing.T) {
	path := writeCSV(t, legacyCSV)
	source := storage.NewBlobSource(storage.NewFileBlob(path))
	assert.Equal(t, "file:"+path, source.String())

	dataset, err := weight.Load(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, 3, dataset.Len())

	res, err := weight.Append(context.Background(), dataset, source, weight.Entry{
		Date:   day(-1),
		Weight: 181.0,
		Food:   7,
	})
	require.NoError(t, err)
	assert.Equal(t, weight.ResultUpdated, res)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `date,weight,food,exer
2024-01-09,181,7,0
2024-01-10,180.4,5,1
2024-01-11,180.2,6,0
2024-01-12,180,4,0
`, string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := weight.Load(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, dataset.Entries(), reloaded.Entries())

	// no temp files left behind
	dirEntries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, dirEntries, 1)
}

func TestFileBlob_ConflictLeavesFileUnchanged(t *testing.T) {
	path := writeCSV(t, legacyCSV)
	source := storage.NewBlobSource(storage.NewFileBlob(path))

	dataset, err := weight.Load(context.Background(), source)
	require.NoError(t, err)

	res, err := weight.Append(context.Background(), dataset, source, weight.Entry{
		Date:   day(1),
		Weight: 175,
		Food:   1,
	})
	assert.ErrorIs(t, err, weight.ErrConflict)
	assert.Equal(t, weight.ResultConflict, res)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, legacyCSV, string(content))
}

func TestFileBlob_WriteFailureRollsBack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.Mkdir(dir, 0o755))
	path := filepath.Join(dir, "weight.csv")
	require.NoError(t, os.WriteFile(path, []byte(legacyCSV), 0o644))

	source := storage.NewBlobSource(storage.NewFileBlob(path))
	dataset, err := weight.Load(context.Background(), source)
	require.NoError(t, err)
	before := dataset.Entries()

	// the directory vanishing makes the temp file creation fail
	require.NoError(t, os.RemoveAll(dir))

	res, err := weight.Append(context.Background(), dataset, source, weight.Entry{Date: day(5), Weight: 179})
	assert.Equal(t, weight.ResultNotApplied, res)
	var writeErr *weight.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, before, dataset.Entries())
}

func TestFileBlob_ReadMissing(t *testing.T) {
	source := storage.NewBlobSource(storage.NewFileBlob(filepath.Join(t.TempDir(), "nope.csv")))
	_, err := weight.Load(context.Background(), source)

	var loadErr *weight.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileBlob_MissingColumn(t *testing.T) {
	source := storage.NewBlobSource(storage.NewFileBlob(writeCSV(t, "date,weight\n2024-01-10,180\n")))
	_, err := weight.Load(context.Background(), source)

	var loadErr *weight.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "missing required column")
}
