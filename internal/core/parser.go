package core

import (
	"regexp"
	"strings"
)

// mfnPrefix marks the first line of every record block.
const mfnPrefix = "MFN:"

// blockBoundary matches the newline that directly precedes an "MFN:" line.
// Go's regexp has no lookahead, so boundaries are located and the text is
// cut at the newline, leaving the marker line at the head of its block.
var blockBoundary = regexp.MustCompile(`\n` + regexp.QuoteMeta(mfnPrefix))

// splitBlocks cuts text into record blocks. Each block after the first
// starts with "MFN:"; the separating newline is dropped.
func splitBlocks(text string) []string {
	locs := blockBoundary.FindAllStringIndex(text, -1)
	blocks := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		blocks = append(blocks, text[start:loc[0]])
		start = loc[0] + 1
	}
	return append(blocks, text[start:])
}

// ParseRecords splits a decoded export into records.
//
// Blank lines are skipped. A line starting with "MFN:" sets the record
// identifier and is appended to Batch.MFNs. Any other line is split on its
// first tab into label and value; both are trimmed and the value is stored
// when the label is a canonical column. Repeated labels keep the last
// value. Lines with no tab or an unknown label are skipped and counted in
// Batch.Ignored.
//
// Empty or whitespace-only text yields an empty Batch.
func ParseRecords(text string) Batch {
	text = strings.TrimSpace(text)
	if text == "" {
		return Batch{}
	}

	blocks := splitBlocks(text)
	batch := Batch{
		Records: make([]Record, 0, len(blocks)),
		MFNs:    make([]string, 0, len(blocks)),
	}

	for _, block := range blocks {
		rec := NewRecord()
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if strings.HasPrefix(line, mfnPrefix) {
				mfn := strings.TrimSpace(strings.TrimPrefix(line, mfnPrefix))
				rec.Set(FieldMFN, mfn)
				batch.MFNs = append(batch.MFNs, mfn)
				continue
			}

			label, value, ok := strings.Cut(line, "\t")
			if !ok {
				batch.Ignored++
				continue
			}
			field, ok := LookupField(strings.TrimSpace(label))
			if !ok {
				batch.Ignored++
				continue
			}
			rec.Set(field, strings.TrimSpace(value))
		}
		batch.Records = append(batch.Records, rec)
	}

	return batch
}
