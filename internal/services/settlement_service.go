package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type settlementService struct {
	repo     repositories.Repository
	logger   *slog.Logger
	notifier NotificationEventService

	// revenueShare is the fraction of the fee credited to the exam
	// creator. The remainder stays with the platform.
	revenueShare float64
}

func NewSettlementService(repo repositories.Repository, logger *slog.Logger, notifier NotificationEventService, revenueShare float64) SettlementService {
	return &settlementService{
		repo:         repo,
		logger:       logger,
		notifier:     notifier,
		revenueShare: revenueShare,
	}
}

// Settle runs the paid-exam money movement inside the caller's transaction:
// debit the student the full fee, record the purchase, credit the creator
// their share, and write one ledger entry per balance change. Any error
// aborts the whole transaction, so a session is never created on a
// half-applied settlement.
func (s *settlementService) Settle(ctx context.Context, txRepo repositories.Repository, exam *models.Exam, studentID uint, sessionCode string) error {
	if txRepo == nil {
		return NewPaymentError("setup", fmt.Errorf("settlement requires a transactional repository"))
	}

	payer, err := txRepo.User().GetByIDForUpdate(ctx, nil, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return NewPaymentError("lock payer", err)
	}

	if payer.Balance < exam.Fee {
		return NewInsufficientBalanceError(payer.Balance, exam.Fee)
	}

	payerBefore := payer.Balance
	payerAfter := payerBefore - exam.Fee
	if err := txRepo.User().UpdateBalance(ctx, nil, payer.ID, payerAfter); err != nil {
		return NewPaymentError("debit payer", err)
	}

	purchase := &models.Purchase{
		ExamID:      exam.ID,
		StudentID:   studentID,
		SessionCode: sessionCode,
		Amount:      exam.Fee,
	}
	if err := txRepo.Ledger().CreatePurchase(ctx, nil, purchase); err != nil {
		return NewPaymentError("record purchase", err)
	}

	if err := txRepo.Ledger().CreateEntry(ctx, nil, &models.LedgerEntry{
		UserID:        payer.ID,
		PurchaseID:    purchase.ID,
		TransferType:  models.TransferOut,
		Amount:        exam.Fee,
		BeforeBalance: payerBefore,
		AfterBalance:  payerAfter,
	}); err != nil {
		return NewPaymentError("write payer entry", err)
	}

	if exam.CreatedBy == nil {
		// Ownerless exams still charge the student; there is simply no one
		// to credit, so the whole fee stays with the platform.
		s.logger.Warn("paid exam has no creator, skipping revenue share", "exam_id", exam.ID)
		s.publishPurchased(ctx, exam, studentID)
		return nil
	}

	creator, err := txRepo.User().GetByIDForUpdate(ctx, nil, *exam.CreatedBy)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return NewPaymentError("credit creator", fmt.Errorf("creator %d not found", *exam.CreatedBy))
		}
		return NewPaymentError("lock creator", err)
	}

	creatorShare := exam.Fee * s.revenueShare
	creatorBefore := creator.Balance
	creatorAfter := creatorBefore + creatorShare
	if err := txRepo.User().UpdateBalance(ctx, nil, creator.ID, creatorAfter); err != nil {
		return NewPaymentError("credit creator", err)
	}

	if err := txRepo.Ledger().CreateEntry(ctx, nil, &models.LedgerEntry{
		UserID:        creator.ID,
		PurchaseID:    purchase.ID,
		TransferType:  models.TransferIn,
		Amount:        creatorShare,
		BeforeBalance: creatorBefore,
		AfterBalance:  creatorAfter,
	}); err != nil {
		return NewPaymentError("write creator entry", err)
	}

	s.logger.Info("exam fee settled",
		"exam_id", exam.ID,
		"student_id", studentID,
		"amount", exam.Fee,
		"creator_share", creatorShare)

	s.publishPurchased(ctx, exam, studentID)
	return nil
}

func (s *settlementService) publishPurchased(ctx context.Context, exam *models.Exam, studentID uint) {
	// The money already moved; a lost event must not undo it.
	_ = s.notifier.PublishExamPurchased(ctx, exam.ID, studentID, exam.Fee)
}

func (s *settlementService) GetLedger(ctx context.Context, userID uint, limit, offset int) (*LedgerListResponse, error) {
	entries, total, err := s.repo.Ledger().GetEntriesByUser(ctx, nil, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	return &LedgerListResponse{Entries: entries, Total: total}, nil
}
