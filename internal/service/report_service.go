package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campushub/codeathon-api/internal/dto"
	"github.com/campushub/codeathon-api/internal/models"
	appErrors "github.com/campushub/codeathon-api/pkg/errors"
	"github.com/campushub/codeathon-api/pkg/export"
	"github.com/campushub/codeathon-api/pkg/storage"
)

// reportPageSize matches the student repository's page size ceiling; larger
// requests get clamped, so the aggregation loop follows the reported total.
const reportPageSize = 100

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type reportStudentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type reportParticipationStats interface {
	StatusCounts(ctx context.Context) (map[models.ParticipationStatus]int, error)
	CountPendingWithoutProctor(ctx context.Context) (int, error)
}

// ReportService produces the department credit summary export and the admin
// dashboard counters. Exports are written to local storage and handed back as
// signed URLs; the files are cleaned up after the signed TTL lapses.
type ReportService struct {
	students       reportStudentLister
	participations reportParticipationStats
	store          *storage.LocalStorage
	signer         *storage.SignedURLSigner
	csv            *export.CSVExporter
	pdf            *export.PDFExporter
	logger         *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(students reportStudentLister, participations reportParticipationStats, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		students:       students,
		participations: participations,
		store:          store,
		signer:         signer,
		csv:            export.NewCSVExporter(),
		pdf:            export.NewPDFExporter(),
		logger:         logger,
	}
}

// DepartmentCreditSummary aggregates the credit ledger per department.
func (s *ReportService) DepartmentCreditSummary(ctx context.Context) ([]dto.DepartmentCreditRow, error) {
	type bucket struct {
		count   int
		credits int
	}
	buckets := make(map[string]*bucket)
	seen := 0
	for page := 1; ; page++ {
		batch, total, err := s.students.List(ctx, models.StudentFilter{Page: page, PageSize: reportPageSize})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
		}
		for _, student := range batch {
			b := buckets[student.Department]
			if b == nil {
				b = &bucket{}
				buckets[student.Department] = b
			}
			b.count++
			b.credits += student.Credits
		}
		seen += len(batch)
		if len(batch) == 0 || seen >= total {
			break
		}
	}

	rows := make([]dto.DepartmentCreditRow, 0, len(buckets))
	for department, b := range buckets {
		avg := 0.0
		if b.count > 0 {
			avg = float64(b.credits) / float64(b.count)
		}
		rows = append(rows, dto.DepartmentCreditRow{
			Department:   department,
			StudentCount: b.count,
			TotalCredits: b.credits,
			AvgCredits:   avg,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Department < rows[j].Department })
	return rows, nil
}

// Export renders the credit summary in the requested format, stores it and
// returns a signed download URL.
func (s *ReportService) Export(ctx context.Context, format ReportFormat) (*dto.ReportFileResponse, error) {
	rows, err := s.DepartmentCreditSummary(ctx)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Department", "Students", "Total Credits", "Average Credits"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Department":      row.Department,
			"Students":        strconv.Itoa(row.StudentCount),
			"Total Credits":   strconv.Itoa(row.TotalCredits),
			"Average Credits": fmt.Sprintf("%.2f", row.AvgCredits),
		})
	}

	var payload []byte
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Department Credit Summary")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	filename := fmt.Sprintf("credit-summary-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	url, expiresAt, err := s.signer.Generate(strings.TrimSuffix(filename, "."+string(format)), relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report url")
	}
	return &dto.ReportFileResponse{
		Filename:  filename,
		Format:    string(format),
		URL:       url,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a signed token and opens the stored report for download.
func (s *ReportService) Resolve(token string) (*storage.FileHandle, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report file no longer available")
	}
	return &storage.FileHandle{File: file, Name: relPath}, nil
}

// Dashboard assembles the admin overview counters.
func (s *ReportService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	counts, err := s.participations.StatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status counts")
	}
	orphaned, err := s.participations.CountPendingWithoutProctor(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unassigned submissions")
	}
	_, totalStudents, err := s.students.List(ctx, models.StudentFilter{Page: 1, PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	return &dto.DashboardResponse{
		PendingSubmissions:    counts[models.ParticipationPending],
		AcceptedSubmissions:   counts[models.ParticipationAccepted],
		DeclinedSubmissions:   counts[models.ParticipationDeclined],
		PendingWithoutProctor: orphaned,
		TotalStudents:         totalStudents,
	}, nil
}

// CleanupExpired removes report files older than the retention TTL.
func (s *ReportService) CleanupExpired(ttl time.Duration) {
	removed, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("report cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("cleaned up expired reports", zap.Int("count", len(removed)))
	}
}
