package table

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	df := dataframe.LoadRecords([][]string{
		{"Name", "Platform", "Year", "Global_Sales"},
		{"Wii Sports", "Wii", "2006", "82.74"},
		{"Super Mario Bros.", "NES", "NaN", "40.24"},
		{"Mario Kart Wii", "NaN", "2008", "NaN"},
	})
	return New(df)
}

func TestShapeAndKinds(t *testing.T) {
	tb := sampleTable()

	rows, cols := tb.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 4, cols)

	kind, err := tb.Kind("Year")
	require.NoError(t, err)
	assert.Equal(t, Numeric, kind)

	kind, err = tb.Kind("Platform")
	require.NoError(t, err)
	assert.Equal(t, Text, kind)

	assert.Equal(t, []string{"Year", "Global_Sales"}, tb.NumericColumns())
}

func TestMissingReport(t *testing.T) {
	report := sampleTable().Missing()

	require.Len(t, report, 4)
	assert.Equal(t, MissingCount{Column: "Name", Count: 0}, report[0])
	assert.Equal(t, 3, report.Total())
	assert.True(t, report.Any())
	assert.Equal(t, MissingReport{
		{Column: "Platform", Count: 1},
		{Column: "Year", Count: 1},
		{Column: "Global_Sales", Count: 1},
	}, report.NonZero())
}

func TestColumnNotFound(t *testing.T) {
	tb := sampleTable()

	_, err := tb.Col("Genre")
	assert.True(t, errors.Is(err, ErrColumnNotFound))
	assert.False(t, tb.HasColumn("Genre"))

	_, err = tb.Floats("Platform")
	assert.Error(t, err)
}

func TestFloats(t *testing.T) {
	vals, err := sampleTable().Floats("Global_Sales")
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.InDelta(t, 82.74, vals[0], 1e-9)
	assert.True(t, math.IsNaN(vals[2]))
}

func TestHead(t *testing.T) {
	tb := sampleTable()
	head := tb.Head(2)
	assert.Contains(t, head, "Wii Sports")
	assert.NotContains(t, head, "Mario Kart Wii")
	assert.Contains(t, tb.Head(10), "Mario Kart Wii")
}
