package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/nps-summary/internal/pipeline"
	"github.com/godilite/nps-summary/internal/pivot"
	"github.com/godilite/nps-summary/internal/report"
	"github.com/godilite/nps-summary/internal/survey"
	"github.com/godilite/nps-summary/pkg/workbook"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNoCountries      = errors.New("no countries configured")
	ErrSourceMissing    = errors.New("source dataset missing")
	ErrSourceUnreadable = errors.New("source dataset unreadable")
	ErrOutputFailure    = errors.New("report output failure")
)

// ReportService runs the country pipelines and hands the assembled report to its sinks.
type ReportService struct {
	source SourceReader
	sinks  []ReportSink
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

type ReportOption func(*ReportService)

// WithClock sets the clock that picks the processing year and generation time.
func WithClock(now func() time.Time) ReportOption {
	return func(s *ReportService) {
		s.now = now
	}
}

// WithRunIDs sets the run identifier generator.
func WithRunIDs(newID func() string) ReportOption {
	return func(s *ReportService) {
		s.newID = newID
	}
}

// NewReportService creates a new ReportService instance.
func NewReportService(source SourceReader, logger *zap.Logger, sinks []ReportSink, opts ...ReportOption) *ReportService {
	if source == nil {
		panic("source must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &ReportService{
		source: source,
		sinks:  sinks,
		logger: logger.Named("report"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build reads every country's source, then cleans and aggregates them in order.
// A missing or unreadable source aborts before any processing.
func (s *ReportService) Build(ctx context.Context, countries []pipeline.Country) (*report.QuarterlyReport, error) {
	if len(countries) == 0 {
		return nil, ErrNoCountries
	}

	datasets := make([]survey.Dataset, len(countries))
	for i, c := range countries {
		ds, err := s.source.Load(ctx, c)
		if err != nil {
			if errors.Is(err, workbook.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s: %v", ErrSourceMissing, c.Code, err)
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, c.Code, err)
		}
		datasets[i] = ds
	}

	generatedAt := s.now()
	clock := func() time.Time { return generatedAt }

	rep := &report.QuarterlyReport{
		RunID:       s.newID(),
		GeneratedAt: generatedAt,
		Countries:   make([]report.CountryResult, 0, len(countries)),
	}
	for i, c := range countries {
		cleaned := pipeline.New(c, clock).Run(datasets[i])
		tables := pivot.Aggregate(cleaned.Records, pivot.Spec{
			Index:  c.AgentField,
			Column: c.RatingField,
		})

		rep.Countries = append(rep.Countries, report.CountryResult{
			Code:    c.Code,
			Pivots:  tables,
			Cleaned: cleaned,
		})

		s.logger.Info("country processed",
			zap.String("country", c.Code),
			zap.Int("source_records", len(datasets[i].Records)),
			zap.Int("cleaned_records", len(cleaned.Records)))
	}

	return rep, nil
}

// Generate builds the report and writes it to every sink in order. When a sink
// fails, sinks already written are asked to discard the run.
func (s *ReportService) Generate(ctx context.Context, countries []pipeline.Country) (*report.QuarterlyReport, error) {
	rep, err := s.Build(ctx, countries)
	if err != nil {
		return nil, err
	}

	for i, sink := range s.sinks {
		if err := sink.WriteReport(ctx, rep); err != nil {
			s.logger.Error("report sink failed", zap.String("run_id", rep.RunID), zap.Error(err))
			s.discard(ctx, rep.RunID, s.sinks[:i])
			return nil, fmt.Errorf("%w: %v", ErrOutputFailure, err)
		}
	}

	s.logger.Info("report generated",
		zap.String("run_id", rep.RunID),
		zap.Time("generated_at", rep.GeneratedAt),
		zap.Int("countries", len(rep.Countries)),
		zap.Int("sinks", len(s.sinks)))

	return rep, nil
}

func (s *ReportService) discard(ctx context.Context, runID string, written []ReportSink) {
	for i := len(written) - 1; i >= 0; i-- {
		d, ok := written[i].(ReportDiscarder)
		if !ok {
			continue
		}
		if err := d.DiscardReport(context.WithoutCancel(ctx), runID); err != nil {
			s.logger.Error("discard failed", zap.String("run_id", runID), zap.Error(err))
			continue
		}
		s.logger.Info("run discarded", zap.String("run_id", runID))
	}
}
