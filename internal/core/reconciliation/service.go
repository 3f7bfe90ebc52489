// internal/core/reconciliation/service.go
package reconciliation

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"reconciliation-service/internal/core/extract"
	"reconciliation-service/internal/core/matcher"
	"reconciliation-service/internal/core/report"
	"reconciliation-service/internal/core/workbook"
	"reconciliation-service/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service define a interface do serviço de conciliação.
type Service interface {
	Reconcile(ctx context.Context, in Input) (*domain.ReconciliationReport, error)
	ExportCSV(ctx context.Context, in Input) ([]byte, error)
}

// SourceFile is one uploaded workbook.
type SourceFile struct {
	Name string
	Data []byte
	Hint *domain.ColumnHint
}

// Input carries both uploads of one run.
type Input struct {
	Statement SourceFile
	Report    SourceFile
	// Export attaches the irregularities workbook, base64 encoded.
	Export bool
}

// Options configures extraction and matching.
type Options struct {
	Matching        matcher.Config
	IncludeCredits  bool
	StatementLayout *domain.FixedLayout
	ReportLayout    *domain.FixedLayout
}

type service struct {
	logger  *zap.Logger
	engine  *matcher.Engine
	options Options
}

// NewService cria uma nova instância do serviço de conciliação.
func NewService(logger *zap.Logger, opts Options) (Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine, err := matcher.NewEngine(opts.Matching)
	if err != nil {
		return nil, fmt.Errorf("configuração de conciliação inválida: %w", err)
	}
	return &service{logger: logger, engine: engine, options: opts}, nil
}

func (s *service) Reconcile(ctx context.Context, in Input) (*domain.ReconciliationReport, error) {
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID))
	start := time.Now()

	result, err := s.run(ctx, log, in)
	if err != nil {
		return nil, err
	}

	out := &domain.ReconciliationReport{
		RunID:         runID,
		StatementFile: in.Statement.Name,
		ReportFile:    in.Report.Name,
		Summary:       report.Summarize(result),
		Result:        result,
	}

	if in.Export {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := report.ExportWorkbook(result)
		if err != nil {
			return nil, fmt.Errorf("erro ao gerar planilha de divergências: %w", err)
		}
		out.Workbook = base64.StdEncoding.EncodeToString(data)
	}

	log.Info("Conciliação concluída",
		zap.Int("matches", out.Summary.MatchedCount),
		zap.Int("missing_from_statement", out.Summary.MissingFromStatementCount),
		zap.Int("missing_from_report", out.Summary.MissingFromReportCount),
		zap.Float64("rate", out.Summary.ReconciliationRate),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (s *service) ExportCSV(ctx context.Context, in Input) ([]byte, error) {
	log := s.logger.With(zap.String("run_id", uuid.NewString()))
	result, err := s.run(ctx, log, in)
	if err != nil {
		return nil, err
	}
	data, err := report.ExportCSV(result)
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar CSV de divergências: %w", err)
	}
	return data, nil
}

// run loads, extracts and matches both sources. ctx is checked between stages.
func (s *service) run(ctx context.Context, log *zap.Logger, in Input) (domain.ReconciliationResult, error) {
	statement, err := s.records(ctx, log, in.Statement, domain.OriginStatement, s.options.StatementLayout)
	if err != nil {
		return domain.ReconciliationResult{}, err
	}
	reportRecords, err := s.records(ctx, log, in.Report, domain.OriginReport, s.options.ReportLayout)
	if err != nil {
		return domain.ReconciliationResult{}, err
	}
	return s.engine.ReconcileContext(ctx, statement, reportRecords)
}

func (s *service) records(ctx context.Context, log *zap.Logger, src SourceFile, origin domain.Origin, layout *domain.FixedLayout) ([]domain.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	label := "extrato"
	if origin == domain.OriginReport {
		label = "relatório"
	}

	sheet, err := workbook.Load(src.Data, src.Name)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler %s: %w", label, err)
	}

	res, err := extract.Extract(sheet, origin, extract.Options{
		Hint:           src.Hint,
		Layout:         layout,
		IncludeCredits: s.options.IncludeCredits,
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao extrair %s: %w", label, err)
	}

	log.Debug("Registros extraídos",
		zap.String("origin", string(origin)),
		zap.String("file", src.Name),
		zap.String("sheet", sheet.Name),
		zap.Any("columns", res.Mapping.Describe(res.Headers)),
		zap.Any("stats", res.Stats),
	)
	return res.Records, nil
}
