package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/airconnect-api/internal/models"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
	"github.com/noah-isme/airconnect-api/pkg/export"
	"github.com/noah-isme/airconnect-api/pkg/storage"
)

type exportApplicationRepository interface {
	ListAll(ctx context.Context) ([]models.Application, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Enabled   bool
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       string
	ExpiresAt    time.Time
}

// ExportService renders the application register for oversight and persists
// the file behind a signed download URL.
type ExportService struct {
	applications exportApplicationRepository
	storage      fileStorage
	csv          csvRenderer
	pdf          pdfRenderer
	signer       *storage.SignedURLSigner
	logger       *zap.Logger
	cfg          ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(applications exportApplicationRepository, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		applications: applications,
		storage:      files,
		csv:          csv,
		pdf:          pdf,
		signer:       signer,
		logger:       logger,
		cfg:          cfg,
	}
}

// GenerateApplicationRegister builds the register dataset and stores the
// rendered file.
func (s *ExportService) GenerateApplicationRegister(ctx context.Context, format string) (*ExportResult, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}

	dataset, err := s.buildRegisterDataset(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build register")
	}

	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, "Application Register")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render register")
	}

	exportID := time.Now().UTC().Format("20060102_150405")
	filename := fmt.Sprintf("application_register_%s.%s", exportID, format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to store register")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/applications/export/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Open validates a download token and returns a handle to the stored file.
func (s *ExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, nil
}

// Cleanup removes files older than the configured TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

func (s *ExportService) buildRegisterDataset(ctx context.Context) (export.Dataset, error) {
	applications, err := s.applications.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, err
	}

	rows := make([]map[string]string, 0, len(applications))
	for _, a := range applications {
		rows = append(rows, map[string]string{
			"ID":                 a.ID,
			"Subject":            a.Subject,
			"Student":            a.StudentID,
			"Advisor":            a.AdvisorID,
			"Coordinator":        a.CoordinatorID,
			"Status":             string(a.Status),
			"Advisor Action":     formatActionTime(a.AdvisorActionAt),
			"Coordinator Action": formatActionTime(a.CoordinatorActionAt),
			"Submitted":          a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Headers: []string{"ID", "Subject", "Student", "Advisor", "Coordinator", "Status",
			"Advisor Action", "Coordinator Action", "Submitted"},
		Rows: rows,
	}, nil
}

func formatActionTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
