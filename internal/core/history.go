package core

import (
	"context"
	"time"
)

// Conversion describes one generated listing. It is what the history store
// keeps and what the history page lists.
type Conversion struct {
	ID         string    `json:"id"`
	SourceName string    `json:"source_name"`
	OutputName string    `json:"output_name"`
	Encoding   Encoding  `json:"encoding"`
	Records    int       `json:"records"`
	Ignored    int       `json:"ignored_lines"`
	Replaced   int       `json:"replaced_cells"`
	MinMFN     string    `json:"min_mfn"`
	MaxMFN     string    `json:"max_mfn"`
	Duplicates []string  `json:"duplicates,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Duration   Duration  `json:"duration"`
	CreatedAt  time.Time `json:"created_at"`
}

// Duration marshals as a Go duration string.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// HistoryStore persists conversions. Implementations live in the history
// package; a failing store never fails a conversion.
type HistoryStore interface {
	Record(ctx context.Context, c Conversion) error
	Recent(ctx context.Context, limit int) ([]Conversion, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// RecentConversions returns the latest conversions, newest first.
func (s *Service) RecentConversions(ctx context.Context, limit int) ([]Conversion, error) {
	if limit <= 0 {
		limit = s.listLimit
	}
	return s.history.Recent(ctx, limit)
}
