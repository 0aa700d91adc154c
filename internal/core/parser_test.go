package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecords_TwoRecords(t *testing.T) {
	batch := ParseRecords("MFN: 5\nTITULO/SUBTITULO\tFoo\nMFN: 3\nAUTOR PRINCIPAL\tBar")

	require.Equal(t, 2, batch.Len())
	assert.Equal(t, []string{"5", "3"}, batch.MFNs)

	first := NewRecord()
	first.Set(FieldMFN, "5")
	first.Set(FieldTitle, "Foo")
	assert.Equal(t, first, batch.Records[0])

	second := NewRecord()
	second.Set(FieldMFN, "3")
	second.Set(FieldAuthor, "Bar")
	assert.Equal(t, second, batch.Records[1])

	lo, hi, err := IdentifierRange(batch.MFNs)
	require.NoError(t, err)
	assert.Equal(t, "3", lo)
	assert.Equal(t, "5", hi)
}

func TestParseRecords_OnlyFirstTabSplits(t *testing.T) {
	batch := ParseRecords("MFN: 1\nEDICION\t2nd\ted.")

	require.Equal(t, 1, batch.Len())
	assert.Equal(t, "2nd\ted.", batch.Records[0].Get(FieldEdition))
}

func TestParseRecords_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t\n"} {
		batch := ParseRecords(in)
		assert.Equal(t, 0, batch.Len(), "input %q", in)
		assert.Empty(t, batch.MFNs, "input %q", in)
		assert.Zero(t, batch.Ignored, "input %q", in)
	}
}

func TestParseRecords_LastValueWins(t *testing.T) {
	batch := ParseRecords("MFN: 1\nIMPRENTA\tMadrid\nIMPRENTA\tBarcelona")

	require.Equal(t, 1, batch.Len())
	assert.Equal(t, "Barcelona", batch.Records[0].Get(FieldImprint))
}

func TestParseRecords_IgnoresMalformedLines(t *testing.T) {
	text := strings.Join([]string{
		"MFN: 10",
		"no tab on this line",
		"NOTAS\tnot a canonical field",
		"titulo/subtitulo\tlabels are case sensitive",
		"  DESCRIPCION FISICA \t 320 p. ",
		"",
		"EDICION\t",
	}, "\n")

	batch := ParseRecords(text)

	require.Equal(t, 1, batch.Len())
	rec := batch.Records[0]
	assert.Equal(t, "320 p.", rec.Get(FieldPhysicalDescription))
	assert.Equal(t, "", rec.Get(FieldTitle))
	assert.Equal(t, "", rec.Get(FieldEdition))
	// no tab, unknown label, wrong case, and "EDICION" whose tab was trimmed away
	assert.Equal(t, 4, batch.Ignored)
}

func TestParseRecords_IdentifierOnlyBlock(t *testing.T) {
	batch := ParseRecords("MFN: 1\nMFN: 2\nTITULO/SUBTITULO\tB")

	require.Equal(t, 2, batch.Len())
	assert.Equal(t, "1", batch.Records[0].MFN())
	for f := FieldShelfMark; f < fieldCount; f++ {
		assert.Equal(t, "", batch.Records[0].Get(f), "field %s", f)
	}
	assert.Equal(t, "B", batch.Records[1].Get(FieldTitle))
}

func TestParseRecords_RowCountMatchesMFNLines(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 25; i++ {
		b.WriteString("MFN: ")
		b.WriteString(strings.Repeat("9", i%3+1))
		b.WriteString("\nAUTOR PRINCIPAL\tAutor\n\n")
	}
	text := b.String()

	batch := ParseRecords(text)

	assert.Equal(t, strings.Count(text, "MFN:"), batch.Len())
	assert.Len(t, batch.MFNs, batch.Len())
}

func TestParseRecords_CRLF(t *testing.T) {
	batch := ParseRecords("MFN: 7\r\nTITULO/SUBTITULO\tRayuela\r\nMFN: 8\r\nEDICION\t1a ed.\r\n")

	require.Equal(t, 2, batch.Len())
	assert.Equal(t, "7", batch.Records[0].MFN())
	assert.Equal(t, "Rayuela", batch.Records[0].Get(FieldTitle))
	assert.Equal(t, "1a ed.", batch.Records[1].Get(FieldEdition))
}

func TestParseRecords_Preamble(t *testing.T) {
	// Text before the first marker forms its own record without identifier.
	batch := ParseRecords("Exportado 2024\nMFN: 1\nTITULO/SUBTITULO\tA")

	require.Equal(t, 2, batch.Len())
	assert.Equal(t, "", batch.Records[0].MFN())
	assert.Equal(t, []string{"1"}, batch.MFNs)
	assert.Equal(t, 1, batch.Ignored)
}

func TestParseRecords_IndentedMarkerStaysInBlock(t *testing.T) {
	// Blocks only split at a marker at the start of a line; an indented
	// marker still sets the identifier of the current record.
	batch := ParseRecords("MFN: 1\nTITULO/SUBTITULO\tA\n  MFN: 2")

	require.Equal(t, 1, batch.Len())
	assert.Equal(t, "2", batch.Records[0].MFN())
	assert.Equal(t, []string{"1", "2"}, batch.MFNs)
}

func TestNewRecord_IsIndependent(t *testing.T) {
	a := NewRecord()
	a.Set(FieldTitle, "x")
	b := NewRecord()

	assert.Equal(t, "", b.Get(FieldTitle))
	assert.Len(t, b.Row(), len(Columns))
}

func TestLookupField(t *testing.T) {
	for i, name := range Columns {
		f, ok := LookupField(name)
		require.True(t, ok, name)
		assert.Equal(t, Field(i), f)
		assert.Equal(t, name, f.String())
	}

	_, ok := LookupField("TITULO")
	assert.False(t, ok)
}
