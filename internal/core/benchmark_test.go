package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// syntheticExport builds an export with n fully populated records.
func syntheticExport(n int) string {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "MFN: %d\n", n-i)
		fmt.Fprintf(&b, "SIGNATURA TOPOGRAFICA\t%03d.%d A%d\n", i%1000, i%7, i)
		b.WriteString("AUTOR PRINCIPAL\tPérez Galdós, Benito\n")
		fmt.Fprintf(&b, "TITULO/SUBTITULO\tEpisodios nacionales, tomo %d\n", i)
		b.WriteString("MENCION RESPONSABILIDAD\tedición crítica de X\n")
		b.WriteString("EDICION\t2a ed.\n")
		b.WriteString("IMPRENTA\tMadrid : Hernando, 1950\n")
		b.WriteString("DESCRIPCION FISICA\t320 p. ; 21 cm\n\n")
	}
	return b.String()
}

// ============================================================================
// Parsing Benchmarks
// ============================================================================

// BenchmarkParseRecords benchmarks block splitting and field extraction.
// This runs once per upload over the whole export.
func BenchmarkParseRecords(b *testing.B) {
	text := syntheticExport(5000)
	b.SetBytes(int64(len(text)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseRecords(text)
	}
}

// BenchmarkDecodeText_UTF8 benchmarks the common, already valid case.
func BenchmarkDecodeText_UTF8(b *testing.B) {
	data := []byte(syntheticExport(1000))
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DecodeText(data)
	}
}

// BenchmarkDecodeText_Latin1 benchmarks the fallback decoder.
func BenchmarkDecodeText_Latin1(b *testing.B) {
	data := []byte(strings.ReplaceAll(syntheticExport(1000), "é", "\xe9"))
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DecodeText(data)
	}
}

// ============================================================================
// Analysis Benchmarks
// ============================================================================

// BenchmarkIdentifierRange benchmarks the stable numeric sort.
func BenchmarkIdentifierRange(b *testing.B) {
	mfns := make([]string, 20000)
	for i := range mfns {
		mfns[i] = fmt.Sprintf("MFN%06d", (i*7919)%20000)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		IdentifierRange(mfns)
	}
}

// BenchmarkDuplicates benchmarks duplicate detection.
func BenchmarkDuplicates(b *testing.B) {
	mfns := make([]string, 20000)
	for i := range mfns {
		mfns[i] = fmt.Sprint(i % 15000)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Duplicates(mfns)
	}
}

// ============================================================================
// Export Benchmarks
// ============================================================================

// BenchmarkWriteSpreadsheet benchmarks workbook generation for a typical
// export of one thousand records.
func BenchmarkWriteSpreadsheet(b *testing.B) {
	records := ParseRecords(syntheticExport(1000)).Records
	path := filepath.Join(b.TempDir(), "lista.xlsx")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := WriteSpreadsheet(records, path); err != nil {
			b.Fatal(err)
		}
	}
}
