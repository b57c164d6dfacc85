package processor

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"DataInsight/src/table"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(cols ...series.Series) *table.Table {
	return table.New(dataframe.New(cols...))
}

func TestImputeNumericMedian(t *testing.T) {
	tb := newTable(series.New([]string{"1", "2", "NaN", "4"}, series.Float, "x"))

	res, err := Impute(tb)
	require.NoError(t, err)

	vals, err := tb.Floats("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 2, 4}, vals)
	require.Len(t, res.Fills, 1)
	assert.Equal(t, Fill{Column: "x", Kind: table.Numeric, Count: 1, Value: "2"}, res.Fills[0])
}

func TestImputeIntColumnEvenCount(t *testing.T) {
	tb := newTable(series.New([]string{"2006", "NaN", "2008", "2009", "2001"}, series.Int, "Year"))

	_, err := Impute(tb)
	require.NoError(t, err)

	col, err := tb.Col("Year")
	require.NoError(t, err)
	assert.Equal(t, series.Float, col.Type())
	assert.Equal(t, 2007.0, col.Elem(1).Float())
}

func TestImputeTextModeFirstOccurrence(t *testing.T) {
	tb := newTable(
		series.New([]string{"B", "A", "NaN", "A", "B"}, series.String, "Platform"),
		series.New([]float64{1, 2, 3, 4, 5}, series.Float, "Sales"),
	)

	res, err := Impute(tb)
	require.NoError(t, err)

	col, err := tb.Col("Platform")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "B", "A", "B"}, col.Records())
	assert.Equal(t, "B", res.Fills[0].Value)
}

func TestImputeLeavesNoMissing(t *testing.T) {
	tb := newTable(
		series.New([]string{"NaN", "NaN"}, series.Float, "empty_num"),
		series.New([]string{"NaN", "NaN"}, series.String, "empty_text"),
		series.New([]string{"x", "NaN"}, series.String, "text"),
		series.New([]string{"true", "NaN"}, series.Bool, "flag"),
	)

	_, err := Impute(tb)
	require.NoError(t, err)
	assert.False(t, tb.Missing().Any())

	vals, _ := tb.Floats("empty_num")
	assert.Equal(t, []float64{0, 0}, vals)
}

func TestImputeIdempotent(t *testing.T) {
	tb := newTable(series.New([]string{"1", "NaN", "3"}, series.Float, "x"))

	_, err := Impute(tb)
	require.NoError(t, err)
	before := tb.GetDF().Records()

	res, err := Impute(tb)
	require.NoError(t, err)
	assert.Empty(t, res.Fills)
	assert.Equal(t, before, tb.GetDF().Records())
}

func TestImputerProcessOutput(t *testing.T) {
	var out bytes.Buffer
	im := &Imputer{Out: &out}
	var _ DataProcess = im

	tb := newTable(series.New([]string{"1", "NaN"}, series.Float, "x"))
	require.NoError(t, im.Process(tb))
	assert.Contains(t, out.String(), "Missing values found")
	assert.Equal(t, 1, im.Result.Missing.Total())

	out.Reset()
	require.NoError(t, im.Process(tb))
	assert.Empty(t, out.String())
}

func TestMedianAndMode(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{4, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 2, 3}))
	assert.True(t, math.IsNaN(Median(nil)))

	assert.Equal(t, "a", Mode([]string{"a", "b"}))
	assert.Equal(t, "b", Mode([]string{"a", "b", "b"}))
	assert.Equal(t, "", Mode(nil))
}

func TestAggregateExample(t *testing.T) {
	tb := newTable(
		series.New([]string{"A", "B", "A"}, series.String, "key"),
		series.New([]float64{10, 5, 5}, series.Float, "value"),
	)

	agg, err := Aggregate(tb, "key", "value")
	require.NoError(t, err)
	require.Len(t, agg.Groups, 2)
	assert.Equal(t, Group{Key: "A", Count: 2, Mean: 7.5, Sum: 15}, agg.Groups[0])
	assert.Equal(t, Group{Key: "B", Count: 1, Mean: 5, Sum: 5}, agg.Groups[1])
}

func TestAggregateTiesKeepEncounterOrder(t *testing.T) {
	tb := newTable(
		series.New([]string{"PS2", "Wii", "DS", "X360"}, series.String, "Platform"),
		series.New([]float64{3, 5, 3, 3}, series.Float, "Global_Sales"),
	)

	agg, err := Aggregate(tb, "Platform", "Global_Sales")
	require.NoError(t, err)

	var keys []string
	for _, g := range agg.Groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"Wii", "PS2", "DS", "X360"}, keys)
	assert.Len(t, agg.Top(2), 2)
	assert.Len(t, agg.Top(10), 4)
}

func TestAggregateNumericKey(t *testing.T) {
	tb := newTable(
		series.New([]float64{2006, 2007, 2006}, series.Float, "Year"),
		series.New([]float64{1, 2, 3}, series.Float, "Global_Sales"),
	)

	agg, err := Aggregate(tb, "Year", "Global_Sales")
	require.NoError(t, err)
	assert.Equal(t, "2006", agg.Groups[0].Key)
	assert.Equal(t, 4.0, agg.Groups[0].Sum)

	frame := agg.Frame()
	assert.Equal(t, []string{"Year", "count", "mean", "sum"}, frame.Names())
	assert.Equal(t, 2, frame.Nrow())
}

func TestValueCounts(t *testing.T) {
	tb := newTable(series.New([]string{"Sports", "Racing", "NaN", "Racing", "Puzzle", "Sports"}, series.String, "Genre"))

	counts, err := ValueCounts(tb, "Genre")
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, "Sports", counts[0].Key)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, "Racing", counts[1].Key)
	assert.Equal(t, "Puzzle", counts[2].Key)

	_, err = ValueCounts(tb, "Platform")
	assert.True(t, errors.Is(err, table.ErrColumnNotFound))
}

func TestDescribe(t *testing.T) {
	tb := newTable(
		series.New([]string{"1", "2", "3", "4", "NaN"}, series.Float, "x"),
		series.New([]string{"a", "b", "c", "d", "e"}, series.String, "label"),
	)

	stats := Describe(tb)
	require.Len(t, stats, 1)
	s := stats[0]
	assert.Equal(t, "x", s.Column)
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.InDelta(t, 1.2909944, s.Std, 1e-6)
	assert.Equal(t, 1.0, s.Min)
	assert.InDelta(t, 1.75, s.Q25, 1e-9)
	assert.InDelta(t, 2.5, s.Q50, 1e-9)
	assert.InDelta(t, 3.25, s.Q75, 1e-9)
	assert.Equal(t, 4.0, s.Max)

	frame := StatsFrame(stats)
	assert.Equal(t, []string{"stat", "x"}, frame.Names())
	assert.Equal(t, 8, frame.Nrow())
}

func TestAnalyzeMissingColumn(t *testing.T) {
	var out bytes.Buffer
	tb := newTable(series.New([]float64{1, 2}, series.Float, "x"), series.New([]string{"a", "b"}, series.String, "k"))

	a := &Analyzer{KeyColumn: "Platform", ValueColumn: "x", Out: &out}
	res, err := a.Analyze(tb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, table.ErrColumnNotFound))
	require.NotNil(t, res)
	assert.Len(t, res.Stats, 1)
	assert.Nil(t, res.Aggregation)
	assert.Contains(t, out.String(), "Error during analysis")
}

func TestAnalyze(t *testing.T) {
	var out bytes.Buffer
	tb := newTable(
		series.New([]string{"Wii", "NES", "Wii"}, series.String, "Platform"),
		series.New([]float64{82.74, 40.24, 35.82}, series.Float, "Global_Sales"),
	)

	a := &Analyzer{KeyColumn: "Platform", ValueColumn: "Global_Sales", Out: &out}
	res, err := a.Analyze(tb)
	require.NoError(t, err)
	assert.Equal(t, "Wii", res.Aggregation.Groups[0].Key)
	assert.Contains(t, out.String(), "Basic Statistics")
	assert.Contains(t, out.String(), "Sales by Platform")
}

func TestAnalyzeWithoutOutput(t *testing.T) {
	tb := newTable(
		series.New([]string{"Wii", "NES", "Wii"}, series.String, "Platform"),
		series.New([]float64{82.74, 40.24, 35.82}, series.Float, "Global_Sales"),
	)

	a := &Analyzer{KeyColumn: "Platform", ValueColumn: "Global_Sales"}
	var (
		res *Analysis
		err error
	)
	require.NotPanics(t, func() { res, err = a.Analyze(tb) })
	require.NoError(t, err)
	require.NotNil(t, res.Aggregation)
	require.Len(t, res.Aggregation.Groups, 2)
	assert.Equal(t, "Wii", res.Aggregation.Groups[0].Key)
	assert.InDelta(t, 118.56, res.Aggregation.Groups[0].Sum, 1e-9)
}
