package storage_test

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/2beens/weightcontrol/internal/weight"
	"github.com/2beens/weightcontrol/internal/weight/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntries(t *testing.T) {
	in := `date,weight,food,exer
2024-01-10,180.4,5,1
2024-01-11,180.2,6,0
`
	entries, err := storage.DecodeEntries(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []weight.Entry{
		{Date: day(0), Weight: 180.4, Food: 5, Exercised: true},
		{Date: day(1), Weight: 180.2, Food: 6, Exercised: false},
	}, entries)
}

func TestDecodeEntries_LegacyLayout(t *testing.T) {
	// column order is free, weight_lbs is an alias and avg_7d is ignored
	in := "\ufeffdate,weight_lbs,exer,food,avg_7d\n" +
		"2024-01-12T00:00:00Z,179.8,yes,4.0,\n" +
		"\n" +
		"2024-01-10,181,FALSE,7,180.5\n" +
		"2024-01-11 , 180.6 , True , 3 ,\n"
	entries, err := storage.DecodeEntries(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, weight.Entry{Date: day(2), Weight: 179.8, Food: 4, Exercised: true}, entries[0])
	assert.Equal(t, weight.Entry{Date: day(0), Weight: 181, Food: 7, Exercised: false}, entries[1])
	assert.Equal(t, weight.Entry{Date: day(1), Weight: 180.6, Food: 3, Exercised: true}, entries[2])
}

func TestDecodeEntries_HeaderOnly(t *testing.T) {
	entries, err := storage.DecodeEntries(strings.NewReader("date,weight,food,exer\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDecodeEntries_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		wantMsg string
	}{
		{
			name:    "empty",
			in:      "",
			wantMsg: "header row missing",
		},
		{
			name:    "missing column",
			in:      "date,weight,exer\n2024-01-10,180,1\n",
			wantMsg: "missing required column: food",
		},
		{
			name:    "bad date",
			in:      "date,weight,food,exer\n2024-01-10,180,5,1\n10/01/2024,180,5,1\n",
			wantMsg: "line 3",
		},
		{
			name:    "bad weight",
			in:      "date,weight,food,exer\n2024-01-10,heavy,5,1\n",
			wantMsg: "parse weight",
		},
		{
			name:    "nan weight",
			in:      "date,weight,food,exer\n2024-01-10,NaN,5,1\n",
			wantMsg: "not a finite number",
		},
		{
			name:    "infinite weight",
			in:      "date,weight,food,exer\n2024-01-10,+Inf,5,1\n",
			wantMsg: "not a finite number",
		},
		{
			name:    "fractional food",
			in:      "date,weight,food,exer\n2024-01-10,180,5.5,1\n",
			wantMsg: "parse food",
		},
		{
			name:    "bad exer",
			in:      "date,weight,food,exer\n2024-01-10,180,5,maybe\n",
			wantMsg: "parse exer",
		},
		{
			name:    "short row",
			in:      "date,weight,food,exer\n2024-01-10,180\n",
			wantMsg: "column food missing",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := storage.DecodeEntries(strings.NewReader(tc.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestEncodeEntries(t *testing.T) {
	var buf bytes.Buffer
	err := storage.EncodeEntries(&buf, []weight.Entry{
		{Date: day(0), Weight: 180.4, Food: 5, Exercised: true},
		{Date: day(1), Weight: 180, Food: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, "date,weight,food,exer\n2024-01-10,180.4,5,1\n2024-01-11,180,0,0\n", buf.String())

	decoded, err := storage.DecodeEntries(&buf)
	require.NoError(t, err)
	assert.Len(t, decoded, 2)
}

func TestDecodeEntries_SampleAsset(t *testing.T) {
	source := storage.NewBlobSource(storage.NewFileBlob("../../../assets/weight.csv"))
	entries, err := source.LoadEntries(t.Context())
	require.NoError(t, err)

	d, err := weight.NewDataset(entries)
	require.NoError(t, err)
	assert.Equal(t, 39, d.Len())
	// the sample leaves three days out
	assert.Len(t, slices.Collect(weight.FindMissing(d, entries[len(entries)-1].Date)), 3)
}
