package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitalpoint/consult-api/internal/models"
	"github.com/vitalpoint/consult-api/pkg/export"
	appErrors "github.com/vitalpoint/consult-api/pkg/errors"
)

type exportConsultationService interface {
	Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Consultation, error)
}

type exportDoctorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders printable consultation summaries. Access follows
// the same rules as reading the consultation itself.
type ExportService struct {
	consultations exportConsultationService
	doctors       exportDoctorRepository
	pdf           pdfRenderer
	logger        *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(consultations exportConsultationService, doctors exportDoctorRepository, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{consultations: consultations, doctors: doctors, pdf: pdf, logger: logger}
}

// ConsultationSummaryPDF renders a one-consultation summary document and
// returns its bytes along with a download filename.
func (s *ExportService) ConsultationSummaryPDF(ctx context.Context, id string, claims *models.JWTClaims) ([]byte, string, error) {
	consultation, err := s.consultations.Get(ctx, id, claims)
	if err != nil {
		return nil, "", err
	}

	doctorName := consultation.DoctorID
	if doctor, err := s.doctors.FindByID(ctx, consultation.DoctorID); err == nil {
		doctorName = doctor.FullName
	}

	start, end := consultation.Interval()
	rows := []map[string]string{
		{"Field": "Consultation ID", "Value": consultation.ID},
		{"Field": "Doctor", "Value": doctorName},
		{"Field": "Scheduled At", "Value": start.Format("2006-01-02 15:04")},
		{"Field": "Ends At", "Value": end.Format("2006-01-02 15:04")},
		{"Field": "Duration", "Value": fmt.Sprintf("%d min", consultation.DurationMinutes)},
		{"Field": "Type", "Value": string(consultation.Type)},
		{"Field": "Status", "Value": string(consultation.Status)},
		{"Field": "Fee", "Value": fmt.Sprintf("%.2f", consultation.Fee)},
		{"Field": "Paid", "Value": fmt.Sprintf("%t", consultation.Paid)},
	}
	if consultation.Notes != nil {
		rows = append(rows, map[string]string{"Field": "Notes", "Value": *consultation.Notes})
	}
	if consultation.Prescription != nil {
		rows = append(rows, map[string]string{"Field": "Prescription", "Value": *consultation.Prescription})
	}

	dataset := export.Dataset{
		Headers: []string{"Field", "Value"},
		Rows:    rows,
	}

	payload, err := s.pdf.Render(dataset, "Consultation Summary")
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render summary")
	}

	filename := fmt.Sprintf("consultation_%s_%s.pdf", consultation.ID, time.Now().UTC().Format("20060102_150405"))
	return payload, filename, nil
}
