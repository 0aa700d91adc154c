package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/fichas/internal/config"
	"github.com/JonMunkholm/fichas/internal/logging"
	"github.com/google/uuid"
)

// previewSampleSize is how many records a preview returns.
const previewSampleSize = 5

// Service runs conversions and manages their artifacts.
type Service struct {
	uploadDir   string
	outputDir   string
	maxFileSize int64
	timeout     time.Duration
	listLimit   int

	limiter *ConversionLimiter
	history HistoryStore
	now     func() time.Time
}

// NewService creates the staging and output directories and returns a
// Service. A nil history store disables history.
func NewService(history HistoryStore, cfg *config.Config) (*Service, error) {
	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if history == nil {
		history = nopHistory{}
	}

	return &Service{
		uploadDir:   cfg.Storage.UploadDir,
		outputDir:   cfg.Storage.OutputDir,
		maxFileSize: cfg.Conversion.MaxFileSize,
		timeout:     cfg.Conversion.Timeout,
		listLimit:   cfg.History.ListLimit,
		limiter:     NewConversionLimiter(cfg.Conversion.MaxConcurrent, cfg.Conversion.MaxWaitTime),
		history:     history,
		now:         time.Now,
	}, nil
}

// Convert stages an uploaded export, parses it and writes the listing.
// It returns the conversion summary; the spreadsheet is at
// OutputPath(result.OutputName). Duplicate identifiers are reported in the
// result and do not fail the conversion. No listing is written when an
// error is returned.
func (s *Service) Convert(ctx context.Context, fileName string, src io.Reader) (*Conversion, error) {
	if strings.TrimSpace(fileName) == "" || src == nil {
		return nil, ErrNoFile
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	id := uuid.NewString()
	started := s.now()
	logger := logging.WithFields(ctx, "conversion_id", id, "file", fileName)

	staged, size, err := stageUpload(s.uploadDir, id, src, s.maxFileSize)
	if err != nil {
		return nil, err
	}
	defer os.Remove(staged)
	logger.Debug("upload staged", "bytes", size)

	text, enc, err := LoadText(staged)
	if err != nil {
		return nil, err
	}
	if enc != EncodingUTF8 {
		logger.Info("export decoded with fallback encoding", "encoding", enc)
	}

	batch, analysis, err := parseAndAnalyze(text)
	if err != nil {
		return nil, err
	}
	if batch.Ignored > 0 {
		logger.Debug("ignored unrecognized lines", "lines", batch.Ignored)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	replaced, err := CheckCells(batch.Records)
	if err != nil {
		return nil, err
	}
	if replaced > 0 {
		logger.Warn("control characters replaced in cells", "cells", replaced)
	}

	name := OutputFileName(started, analysis.MinMFN, analysis.MaxMFN, newNameToken())
	if err := WriteSpreadsheet(batch.Records, filepath.Join(s.outputDir, name)); err != nil {
		return nil, fmt.Errorf("export listing: %w", err)
	}

	conv := Conversion{
		ID:         id,
		SourceName: filepath.Base(fileName),
		OutputName: name,
		Encoding:   enc,
		Records:    batch.Len(),
		Ignored:    batch.Ignored,
		Replaced:   replaced,
		MinMFN:     analysis.MinMFN,
		MaxMFN:     analysis.MaxMFN,
		Duplicates: analysis.Duplicates,
		IPAddress:  IPAddressFromContext(ctx),
		UserAgent:  UserAgentFromContext(ctx),
		Duration:   Duration(s.now().Sub(started)),
		CreatedAt:  started.UTC(),
	}

	if len(conv.Duplicates) > 0 {
		logger.Warn("duplicate MFN detected", "mfns", conv.Duplicates)
	}
	if err := s.history.Record(context.WithoutCancel(ctx), conv); err != nil {
		logger.Error("record conversion history", "error", err)
	}

	logger.Info("conversion completed",
		"output", name,
		"records", conv.Records,
		"range", conv.MinMFN+"-"+conv.MaxMFN,
		"duration_ms", time.Duration(conv.Duration).Milliseconds(),
	)
	return &conv, nil
}

// Preview is the result of analysing an export without writing a listing.
type Preview struct {
	SourceName string              `json:"source_name"`
	Encoding   Encoding            `json:"encoding"`
	Records    int                 `json:"records"`
	Ignored    int                 `json:"ignored_lines"`
	Replaced   int                 `json:"replaced_cells"`
	Columns    []string            `json:"columns"`
	Sample     []map[string]string `json:"sample"`
	Analysis
}

// Preview parses and analyses an export in memory. It shares the
// conversion limiter, since the whole export is held in memory.
func (s *Service) Preview(ctx context.Context, fileName string, src io.Reader) (*Preview, error) {
	if strings.TrimSpace(fileName) == "" || src == nil {
		return nil, ErrNoFile
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	data, err := readCapped(src, s.maxFileSize)
	if err != nil {
		return nil, err
	}
	text, enc, err := DecodeText(data)
	if err != nil {
		return nil, err
	}
	batch, analysis, err := parseAndAnalyze(text)
	if err != nil {
		return nil, err
	}
	replaced, err := CheckCells(batch.Records)
	if err != nil {
		return nil, err
	}

	n := min(previewSampleSize, batch.Len())
	sample := make([]map[string]string, n)
	for i := range n {
		sample[i] = batch.Records[i].Map()
	}

	logging.FromContext(ctx).Debug("export previewed", "file", fileName, "records", batch.Len())
	return &Preview{
		SourceName: filepath.Base(fileName),
		Encoding:   enc,
		Records:    batch.Len(),
		Ignored:    batch.Ignored,
		Replaced:   replaced,
		Columns:    ColumnNames(),
		Sample:     sample,
		Analysis:   analysis,
	}, nil
}

// parseAndAnalyze parses text and computes its identifier analysis. A
// batch without records or without any "MFN:" line yields ErrNoRecords.
func parseAndAnalyze(text string) (Batch, Analysis, error) {
	batch := ParseRecords(text)
	if batch.Len() == 0 {
		return Batch{}, Analysis{}, ErrNoRecords
	}
	analysis, err := Analyze(batch)
	if err != nil {
		return Batch{}, Analysis{}, err
	}
	return batch, analysis, nil
}

// OutputPath resolves a listing name to its path, refusing names that were
// not produced by OutputFileName.
func (s *Service) OutputPath(name string) (string, error) {
	if !IsOutputFileName(name) {
		return "", fmt.Errorf("%w: %q", ErrOutputNotFound, name)
	}
	path := filepath.Join(s.outputDir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", ErrOutputNotFound, name)
		}
		return "", err
	}
	return path, nil
}

// LimiterStatus returns the conversion limiter state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForConversions blocks until running conversions finish or ctx ends.
func (s *Service) WaitForConversions(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Close releases the history store.
func (s *Service) Close() error {
	return s.history.Close()
}

// nopHistory is used when no store is configured.
type nopHistory struct{}

func (nopHistory) Record(context.Context, Conversion) error { return nil }
func (nopHistory) Recent(context.Context, int) ([]Conversion, error) { return nil, nil }
func (nopHistory) Prune(context.Context, time.Time) (int64, error) { return 0, nil }
func (nopHistory) Close() error { return nil }
