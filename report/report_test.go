package report

import (
	"bufio"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextWriterWritesHeaderThenRows(t *testing.T) {
	path := t.TempDir() + "/out.csv"
	w, err := NewTextWriter(path)
	require.NoError(t, err)

	w.Write(Record{Tag: "MU", ITOW: 1.5, LatDeg: 10, LonDeg: 20, HeightM: 100})
	w.Write(Record{Tag: "TU", ITOW: 1.6, LatDeg: 10.001, LonDeg: 20.001, HeightM: 101})
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	header := scanner.Text()
	assert.True(t, strings.HasPrefix(header, "tag,itow,lat_deg"))

	require.True(t, scanner.Scan())
	row := scanner.Text()
	assert.True(t, strings.HasPrefix(row, "MU,1.5,10"))
}

func TestTextWriterIncludesBiasAndStdDevColumnsWhenPresent(t *testing.T) {
	path := t.TempDir() + "/out.csv"
	w, err := NewTextWriter(path)
	require.NoError(t, err)

	w.Write(Record{
		Tag: "MU", HasBias: true, AccelBias: [3]float64{1, 2, 3},
		HasStdDev: true, StdDev: []float64{0.1, 0.2, 0.3},
	})
	require.NoError(t, w.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "accel_bias_x")
	assert.Contains(t, string(b), "sigma_0")
}

func TestFilterDropsDisabledTags(t *testing.T) {
	rec := &recordingWriter{}
	f := &Filter{Next: rec, DumpAtTU: false, DumpAtMU: true, DumpStdDev: false}

	f.Write(Record{Tag: "TU"})
	f.Write(Record{Tag: "MU", HasStdDev: true, StdDev: []float64{1, 2}})

	require.Len(t, rec.records, 1)
	assert.Equal(t, "MU", rec.records[0].Tag)
	assert.False(t, rec.records[0].HasStdDev)
}

type recordingWriter struct {
	records []Record
}

func (r *recordingWriter) Write(rec Record) { r.records = append(r.records, rec) }
func (r *recordingWriter) Close() error     { return nil }
