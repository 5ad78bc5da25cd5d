package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

// MockUserRepository keeps balances in memory so settlement math can be
// asserted without a database.
type MockUserRepository struct {
	users map[uint]*models.User
}

func (m *MockUserRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	return m.GetByID(ctx, tx, id)
}

func (m *MockUserRepository) UpdateBalance(ctx context.Context, tx *gorm.DB, id uint, balance float64) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Balance = balance
	return nil
}

type MockLedgerRepository struct {
	purchases []*models.Purchase
	entries   []*models.LedgerEntry
	entryErr  error
}

func (m *MockLedgerRepository) CreatePurchase(ctx context.Context, tx *gorm.DB, purchase *models.Purchase) error {
	purchase.ID = uint(len(m.purchases) + 1)
	m.purchases = append(m.purchases, purchase)
	return nil
}

func (m *MockLedgerRepository) CreateEntry(ctx context.Context, tx *gorm.DB, entry *models.LedgerEntry) error {
	if m.entryErr != nil {
		return m.entryErr
	}
	entry.ID = uint(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockLedgerRepository) GetEntriesByUser(ctx context.Context, tx *gorm.DB, userID uint, limit, offset int) ([]*models.LedgerEntry, int64, error) {
	var out []*models.LedgerEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

type MockSettlementRepository struct {
	MockSweeperRepository
	user   *MockUserRepository
	ledger *MockLedgerRepository
}

func (m *MockSettlementRepository) User() repositories.UserRepository     { return m.user }
func (m *MockSettlementRepository) Ledger() repositories.LedgerRepository { return m.ledger }

func (m *MockSettlementRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func newSettlementFixture(studentBalance, creatorBalance float64) (*MockSettlementRepository, *events.MockEventPublisher, SettlementService) {
	repo := &MockSettlementRepository{
		user: &MockUserRepository{users: map[uint]*models.User{
			100: {ID: 100, Name: "student", Balance: studentBalance},
			200: {ID: 200, Name: "creator", Balance: creatorBalance},
		}},
		ledger: &MockLedgerRepository{},
	}
	publisher := events.NewMockEventPublisher(newSweeperTestLogger())
	notifier := NewNotificationEventService(repo, publisher, newSweeperTestLogger())
	svc := NewSettlementService(repo, newSweeperTestLogger(), notifier, 0.80)
	return repo, publisher, svc
}

func paidExam(fee float64) *models.Exam {
	creator := uint(200)
	return &models.Exam{ID: 1, IsPaid: true, Fee: fee, CreatedBy: &creator}
}

func TestSettle(t *testing.T) {
	ctx := context.Background()

	t.Run("Moves_Money_And_Writes_Both_Entries", func(t *testing.T) {
		repo, publisher, svc := newSettlementFixture(50, 10)

		if err := svc.Settle(ctx, repo, paidExam(20), 100, "SES-ABC"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := repo.user.users[100].Balance; got != 30 {
			t.Errorf("expected student balance 30, got %v", got)
		}
		// Creator receives 80% of the 20 fee.
		if got := repo.user.users[200].Balance; got != 26 {
			t.Errorf("expected creator balance 26, got %v", got)
		}

		if len(repo.ledger.purchases) != 1 {
			t.Fatalf("expected 1 purchase, got %d", len(repo.ledger.purchases))
		}
		purchase := repo.ledger.purchases[0]
		if purchase.Amount != 20 || purchase.SessionCode != "SES-ABC" {
			t.Errorf("unexpected purchase: %+v", purchase)
		}

		if len(repo.ledger.entries) != 2 {
			t.Fatalf("expected 2 ledger entries, got %d", len(repo.ledger.entries))
		}
		out, in := repo.ledger.entries[0], repo.ledger.entries[1]
		if out.TransferType != models.TransferOut || out.BeforeBalance != 50 || out.AfterBalance != 30 {
			t.Errorf("unexpected payer entry: %+v", out)
		}
		if in.TransferType != models.TransferIn || in.BeforeBalance != 10 || in.AfterBalance != 26 || in.Amount != 16 {
			t.Errorf("unexpected creator entry: %+v", in)
		}
		if out.PurchaseID != purchase.ID || in.PurchaseID != purchase.ID {
			t.Error("entries must reference the purchase")
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventExamPurchased {
			t.Errorf("expected one purchase event, got %v", published)
		}
	})

	t.Run("Insufficient_Balance", func(t *testing.T) {
		repo, _, svc := newSettlementFixture(5, 0)

		err := svc.Settle(ctx, repo, paidExam(20), 100, "SES-ABC")

		var balanceErr *InsufficientBalanceError
		if !errors.As(err, &balanceErr) {
			t.Fatalf("expected InsufficientBalanceError, got %v", err)
		}
		if balanceErr.CurrentBalance != 5 || balanceErr.RequiredAmount != 20 {
			t.Errorf("unexpected amounts: %+v", balanceErr)
		}
		if repo.user.users[100].Balance != 5 {
			t.Error("balance must stay untouched on rejection")
		}
	})

	t.Run("Exact_Balance_Is_Enough", func(t *testing.T) {
		repo, _, svc := newSettlementFixture(20, 0)

		if err := svc.Settle(ctx, repo, paidExam(20), 100, "SES-ABC"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.user.users[100].Balance != 0 {
			t.Errorf("expected balance 0, got %v", repo.user.users[100].Balance)
		}
	})

	t.Run("Unknown_Payer", func(t *testing.T) {
		repo, _, svc := newSettlementFixture(50, 10)

		if err := svc.Settle(ctx, repo, paidExam(20), 999, "SES-ABC"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("Creatorless_Exam_Skips_The_Credit", func(t *testing.T) {
		repo, publisher, svc := newSettlementFixture(50, 10)
		exam := &models.Exam{ID: 1, IsPaid: true, Fee: 20}

		if err := svc.Settle(ctx, repo, exam, 100, "SES-ABC"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := repo.user.users[100].Balance; got != 30 {
			t.Errorf("expected student balance 30, got %v", got)
		}
		if got := repo.user.users[200].Balance; got != 10 {
			t.Errorf("no one should be credited, got creator balance %v", got)
		}
		if len(repo.ledger.entries) != 1 || repo.ledger.entries[0].TransferType != models.TransferOut {
			t.Fatalf("expected only the payer entry, got %+v", repo.ledger.entries)
		}
		if len(publisher.GetPublishedEvents()) != 1 {
			t.Error("purchase event must still be published")
		}
	})

	t.Run("Ledger_Write_Failure_Surfaces", func(t *testing.T) {
		repo, _, svc := newSettlementFixture(50, 10)
		repo.ledger.entryErr = errors.New("disk full")

		err := svc.Settle(ctx, repo, paidExam(20), 100, "SES-ABC")

		var paymentErr *PaymentError
		if !errors.As(err, &paymentErr) {
			t.Fatalf("expected PaymentError, got %v", err)
		}
	})

	t.Run("Nil_Repository_Rejected", func(t *testing.T) {
		_, _, svc := newSettlementFixture(50, 10)

		err := svc.Settle(ctx, nil, paidExam(20), 100, "SES-ABC")

		var paymentErr *PaymentError
		if !errors.As(err, &paymentErr) {
			t.Fatalf("expected PaymentError, got %v", err)
		}
	})
}
