// Package core converts catalogue exports into spreadsheet listings.
//
// This package holds all domain logic independent of the HTTP layer. It
// can be driven by web handlers or tests without modification.
//
// # Export format
//
// An export is plain text, UTF-8 or Latin-1, made of record blocks. Each
// block starts with an "MFN:" line carrying the record identifier and
// continues with "LABEL<TAB>value" lines:
//
//	MFN: 5
//	TITULO/SUBTITULO	Cien años de soledad
//	AUTOR PRINCIPAL	García Márquez, Gabriel
//
// Only the eight labels in [Columns] are kept. Other lines are skipped and
// counted in [Batch.Ignored].
//
// # Pipeline
//
// [Service.Convert] runs one conversion end to end:
//
//  1. The upload is staged under a generated name ([stageUpload]).
//  2. [LoadText] decodes it, falling back from UTF-8 to Latin-1.
//  3. [ParseRecords] splits it into records and identifiers.
//  4. [Analyze] finds the numeric identifier range and duplicates.
//  5. [WriteSpreadsheet] writes the listing, named by [OutputFileName].
//
// Duplicate identifiers are a warning carried in the result; an identifier
// without digits fails the conversion with [ErrNoDigits].
//
// # Error Handling
//
// Sentinel errors are wrapped with context and checked with errors.Is.
// [MapError] turns any error into a [UserMessage] with a support code.
//
// # Housekeeping
//
// [ConversionLimiter] caps parallel conversions. The retention sweeper
// ([Service.StartRetentionSweeper]) removes expired listings, abandoned
// staged uploads and old history entries.
package core
