package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// ExportResults renders every result of an exam into an xlsx workbook,
// highest score first. Only the exam creator (or an admin) may export.
func (s *exportService) ExportResults(ctx context.Context, examID, requesterID uint, role models.UserRole) ([]byte, string, error) {
	exam, err := s.repo.Exam().GetByID(ctx, s.db, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrExamNotFound
		}
		return nil, "", fmt.Errorf("failed to get exam: %w", err)
	}

	if role != models.RoleAdmin {
		if exam.CreatedBy == nil || *exam.CreatedBy != requesterID {
			return nil, "", NewPermissionError(requesterID, examID, "exam", "export", "only the exam creator may export results")
		}
	}

	results, err := s.repo.Result().GetByExam(ctx, s.db, examID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get results: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"#", "Student", "Email", "Score", "Correct", "Wrong", "Percentage", "Status", "Submitted At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, result := range results {
		values := []interface{}{
			row + 1,
			studentName(result),
			studentEmail(result),
			result.TotalScore,
			result.CorrectCount,
			result.WrongCount,
			fmt.Sprintf("%.2f%%", result.Percentage),
			string(result.Status),
			submittedAt(result),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	filename := fmt.Sprintf("exam_%d_results_%s.xlsx", exam.ID, time.Now().Format("20060102"))
	s.logger.Info("exported exam results", "exam_id", examID, "rows", len(results))
	return buf.Bytes(), filename, nil
}

func studentName(result *models.ExamResult) string {
	if result.Session != nil {
		return result.Session.Student.Name
	}
	return ""
}

func studentEmail(result *models.ExamResult) string {
	if result.Session != nil {
		return result.Session.Student.Email
	}
	return ""
}

func submittedAt(result *models.ExamResult) string {
	if result.Session != nil && result.Session.SubmittedAt != nil {
		return result.Session.SubmittedAt.Format(time.RFC3339)
	}
	return ""
}
