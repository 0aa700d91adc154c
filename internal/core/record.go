package core

// Field identifies one of the canonical bibliographic columns.
// The zero value is FieldMFN; fields are ordered the way they appear in
// the exported spreadsheet.
type Field int

const (
	FieldMFN Field = iota
	FieldShelfMark
	FieldAuthor
	FieldTitle
	FieldResponsibility
	FieldEdition
	FieldImprint
	FieldPhysicalDescription

	fieldCount
)

// Columns lists the canonical field names in export order. The names match
// the labels used by the catalogue export verbatim (case and spacing).
var Columns = [fieldCount]string{
	FieldMFN:                 "MFN",
	FieldShelfMark:           "SIGNATURA TOPOGRAFICA",
	FieldAuthor:              "AUTOR PRINCIPAL",
	FieldTitle:               "TITULO/SUBTITULO",
	FieldResponsibility:      "MENCION RESPONSABILIDAD",
	FieldEdition:             "EDICION",
	FieldImprint:             "IMPRENTA",
	FieldPhysicalDescription: "DESCRIPCION FISICA",
}

// fieldsByName resolves an exact, trimmed field label to its Field.
var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for i, name := range Columns {
		m[name] = Field(i)
	}
	return m
}()

// String returns the export label of the field.
func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "UNKNOWN"
	}
	return Columns[f]
}

// LookupField returns the Field for an exact column label.
func LookupField(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

// ColumnNames returns a fresh copy of the canonical header row.
func ColumnNames() []string {
	out := make([]string, fieldCount)
	copy(out, Columns[:])
	return out
}

// Record holds the canonical fields of one catalogue entry.
// Every field is always present; absent values are empty strings.
type Record struct {
	values [fieldCount]string
}

// NewRecord returns a record with every canonical field set to "".
func NewRecord() Record {
	return Record{}
}

// Get returns the value of f.
func (r Record) Get(f Field) string {
	if f < 0 || f >= fieldCount {
		return ""
	}
	return r.values[f]
}

// Set stores v under f. Unknown fields are ignored.
func (r *Record) Set(f Field, v string) {
	if f < 0 || f >= fieldCount {
		return
	}
	r.values[f] = v
}

// MFN returns the record identifier.
func (r Record) MFN() string {
	return r.values[FieldMFN]
}

// Row returns the record's values in column order.
func (r Record) Row() []string {
	out := make([]string, fieldCount)
	copy(out, r.values[:])
	return out
}

// Map returns the record keyed by column label, for JSON responses.
func (r Record) Map() map[string]string {
	m := make(map[string]string, fieldCount)
	for i, name := range Columns {
		m[name] = r.values[i]
	}
	return m
}

// Batch is the result of parsing one export file.
type Batch struct {
	// Records in source order.
	Records []Record

	// MFNs holds one raw identifier per "MFN:" line, in source order.
	// It is kept apart from Records so identifiers are collected even when
	// the rest of a block is malformed.
	MFNs []string

	// Ignored counts non-blank lines that were skipped: lines without a
	// tab separator and lines naming an unknown field.
	Ignored int
}

// Len returns the number of parsed records.
func (b Batch) Len() int {
	return len(b.Records)
}
