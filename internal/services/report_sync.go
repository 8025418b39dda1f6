package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/sheets"
)

// ReportSyncConfig holds configuration for the report sync.
type ReportSyncConfig struct {
	// FlushInterval is how often dirty years are written (default: 10s)
	FlushInterval time.Duration

	// MaxRetries is how many failed writes a year gets before it is dropped
	// until the next change (default: 3)
	MaxRetries int
}

func DefaultReportSyncConfig() ReportSyncConfig {
	return ReportSyncConfig{
		FlushInterval: 10 * time.Second,
		MaxRetries:    3,
	}
}

// SeriesSource produces the yearly series a report is built from.
type SeriesSource interface {
	YearlySeries(ctx context.Context, year int) (core.YearSeries, error)
}

// ReportSync keeps yearly reports in a spreadsheet up to date. Ledger events
// mark their year dirty; dirty years are rewritten on every flush, so a burst
// of writes produces a single report update.
type ReportSync struct {
	series SeriesSource
	writer sheets.ReportWriter
	config ReportSyncConfig
	now    func() time.Time

	mu      sync.Mutex
	dirty   map[int]dirtyYear
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReportSync(series SeriesSource, writer sheets.ReportWriter, config ReportSyncConfig) *ReportSync {
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultReportSyncConfig().FlushInterval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultReportSyncConfig().MaxRetries
	}
	return &ReportSync{
		series: series,
		writer: writer,
		config: config,
		now:    time.Now,
		dirty:  make(map[int]dirtyYear),
	}
}

// dirtyYear tracks a year waiting for a flush. gen is bumped by every
// MarkDirty so a flush only clears the changes it actually wrote.
type dirtyYear struct {
	gen      uint64
	attempts int
}

// MarkDirty schedules year for the next flush.
func (s *ReportSync) MarkDirty(year int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dirty[year]
	d.gen++
	d.attempts = 0
	s.dirty[year] = d
}

// Pending returns the number of years waiting for a flush.
func (s *ReportSync) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

// HandleLedgerEvent marks the year the event refers to. Events without a
// period, such as imports and resets, mark the current year.
func (s *ReportSync) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	year := s.now().Year()
	if len(ev.Period) >= 4 {
		y, err := strconv.Atoi(ev.Period[:4])
		if err != nil {
			return fmt.Errorf("ledger event period %q: %w", ev.Period, err)
		}
		year = y
	}
	slog.DebugContext(ctx, "Report marked dirty",
		applog.FieldYear, year, applog.FieldEntity, ev.Entity, applog.FieldOperation, ev.Op)
	s.MarkDirty(year)
	return nil
}

// Flush writes every dirty year and returns how many reports were written.
func (s *ReportSync) Flush(ctx context.Context) int {
	s.mu.Lock()
	snapshot := make(map[int]uint64, len(s.dirty))
	for y, d := range s.dirty {
		snapshot[y] = d.gen
	}
	s.mu.Unlock()

	written := 0
	for year, gen := range snapshot {
		if ctx.Err() != nil {
			break
		}
		if err := s.writeYear(ctx, year); err != nil {
			s.handleFailure(ctx, year, gen, err)
			continue
		}
		s.mu.Lock()
		// marked again while the write was in flight: keep it for the next flush
		if s.dirty[year].gen == gen {
			delete(s.dirty, year)
		}
		s.mu.Unlock()
		written++
	}
	return written
}

func (s *ReportSync) writeYear(ctx context.Context, year int) error {
	series, err := s.series.YearlySeries(ctx, year)
	if err != nil {
		return fmt.Errorf("build series: %w", err)
	}
	if err := s.writer.WriteYearReport(ctx, sheets.BuildYearReport(year, series)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (s *ReportSync) handleFailure(ctx context.Context, year int, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dirty[year]
	if !ok || d.gen != gen {
		// newer change pending, it gets fresh attempts
		return
	}
	d.attempts++
	attempts := d.attempts
	if attempts >= s.config.MaxRetries {
		delete(s.dirty, year)
		slog.ErrorContext(ctx, "Report sync failed permanently",
			applog.FieldComponent, applog.ComponentSheets, applog.FieldYear, year, "attempts", attempts, applog.FieldError, err)
		return
	}
	s.dirty[year] = d
	slog.WarnContext(ctx, "Report sync failed, will retry",
		applog.FieldComponent, applog.ComponentSheets, applog.FieldYear, year, "attempts", attempts, applog.FieldError, err)
}

// Start begins the flush loop. Returns an error if already running.
func (s *ReportSync) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("report sync is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Report sync started", "flush_interval", s.config.FlushInterval)
	return nil
}

// Stop flushes once more and waits for the loop to exit.
func (s *ReportSync) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Report sync stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Report sync stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *ReportSync) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ReportSync) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			s.Flush(context.WithoutCancel(ctx))
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Flush(ctx); n > 0 {
				slog.InfoContext(ctx, "Reports synced",
					applog.FieldComponent, applog.ComponentSheets, applog.FieldOperation, applog.OpSync, "count", n)
			}
		}
	}
}
