package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

type MockExamRepository struct {
	exam        *models.Exam
	access      bool
	incremented []uint
}

func (m *MockExamRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	if m.exam != nil && m.exam.ID == id {
		return m.exam, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockExamRepository) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	return m.GetByID(ctx, tx, id)
}

func (m *MockExamRepository) IncrementAttemptCount(ctx context.Context, tx *gorm.DB, id uint) error {
	m.incremented = append(m.incremented, id)
	return nil
}

func (m *MockExamRepository) CanStudentAccess(ctx context.Context, tx *gorm.DB, examID, studentID uint) (bool, error) {
	return m.access, nil
}

type MockAnswerRepository struct {
	bySession map[uint][]*models.StudentAnswer
	upserted  []*models.StudentAnswer
}

func (m *MockAnswerRepository) Upsert(ctx context.Context, tx *gorm.DB, answer *models.StudentAnswer) error {
	if m.bySession == nil {
		m.bySession = make(map[uint][]*models.StudentAnswer)
	}
	m.upserted = append(m.upserted, answer)
	m.bySession[answer.SessionID] = append(m.bySession[answer.SessionID], answer)
	return nil
}

func (m *MockAnswerRepository) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.StudentAnswer, error) {
	return m.bySession[sessionID], nil
}

func (m *MockAnswerRepository) CountBySession(ctx context.Context, tx *gorm.DB, sessionID uint) (int64, error) {
	return int64(len(m.bySession[sessionID])), nil
}

type MockResultRepository struct {
	bySession map[uint]*models.ExamResult
	upserted  []*models.ExamResult
}

func (m *MockResultRepository) Upsert(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error {
	if m.bySession == nil {
		m.bySession = make(map[uint]*models.ExamResult)
	}
	m.upserted = append(m.upserted, result)
	m.bySession[result.SessionID] = result
	return nil
}

func (m *MockResultRepository) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) (*models.ExamResult, error) {
	if r, ok := m.bySession[sessionID]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockResultRepository) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamResult, error) {
	return nil, nil
}

func (m *MockResultRepository) Update(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error {
	if m.bySession == nil {
		m.bySession = make(map[uint]*models.ExamResult)
	}
	m.bySession[result.SessionID] = result
	return nil
}

type MockStatusRepository struct {
	status  *models.StudentExamStatus
	updates []models.StudentExamStatus
}

func (m *MockStatusRepository) GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, studentID, examID uint) (*models.StudentExamStatus, error) {
	if m.status == nil {
		m.status = &models.StudentExamStatus{StudentID: studentID, ExamID: examID, Status: models.ExamNotStarted}
	}
	return m.status, nil
}

func (m *MockStatusRepository) Update(ctx context.Context, tx *gorm.DB, status *models.StudentExamStatus) error {
	m.updates = append(m.updates, *status)
	return nil
}

// MockLifecycleRepository wires the per-domain mocks into one Repository so
// the session and finalize flows can run end to end in memory.
type MockLifecycleRepository struct {
	MockSweeperRepository
	exam   *MockExamRepository
	answer *MockAnswerRepository
	result *MockResultRepository
	status *MockStatusRepository
}

func (m *MockLifecycleRepository) Exam() repositories.ExamRepository     { return m.exam }
func (m *MockLifecycleRepository) Answer() repositories.AnswerRepository { return m.answer }
func (m *MockLifecycleRepository) Result() repositories.ResultRepository { return m.result }
func (m *MockLifecycleRepository) Status() repositories.StudentExamStatusRepository {
	return m.status
}

func (m *MockLifecycleRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

type MockSettlementService struct {
	calls int
	err   error
}

func (m *MockSettlementService) Settle(ctx context.Context, txRepo repositories.Repository, exam *models.Exam, studentID uint, sessionCode string) error {
	m.calls++
	return m.err
}

func (m *MockSettlementService) GetLedger(ctx context.Context, userID uint, limit, offset int) (*LedgerListResponse, error) {
	return &LedgerListResponse{}, nil
}

func newLifecycleRepo(session *MockSessionRepository, exam *MockExamRepository) *MockLifecycleRepository {
	return &MockLifecycleRepository{
		MockSweeperRepository: MockSweeperRepository{session: session},
		exam:                  exam,
		answer:                &MockAnswerRepository{},
		result:                &MockResultRepository{},
		status:                &MockStatusRepository{},
	}
}

func newSessionFixture(repo *MockLifecycleRepository) (SessionService, *MockSettlementService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher(newSweeperTestLogger())
	notifier := NewNotificationEventService(repo, publisher, newSweeperTestLogger())
	settlement := &MockSettlementService{}
	svc := NewSessionService(repo, newSweeperTestLogger(), validator.New(), settlement, &MockFinalizer{}, notifier)
	return svc, settlement, publisher
}

func TestStart_ResumesActiveSession(t *testing.T) {
	exam := testExam()
	exam.DurationMinutes = 30
	active := &models.ExamSession{
		ID:        7,
		ExamID:    exam.ID,
		StudentID: 100,
		Code:      "SES-RESUME00001",
		Status:    models.SessionInProgress,
		StartTime: time.Now().Add(-5 * time.Minute),
		EndTime:   time.Now().Add(25 * time.Minute),
	}
	session := &MockSessionRepository{active: active}
	repo := newLifecycleRepo(session, &MockExamRepository{exam: exam, access: true})
	svc, settlement, publisher := newSessionFixture(repo)

	resp, err := svc.Start(context.Background(), exam.ID, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.Resumed {
		t.Error("expected resumed response for an unexpired active session")
	}
	if resp.ExamSession.ID != 7 {
		t.Errorf("expected session 7, got %d", resp.ExamSession.ID)
	}
	if settlement.calls != 0 {
		t.Errorf("resuming must not settle again, got %d settle calls", settlement.calls)
	}
	if len(session.created) != 0 {
		t.Errorf("resuming must not create a session, got %d", len(session.created))
	}
	if got := publisher.GetPublishedEvents(); len(got) != 0 {
		t.Errorf("resuming must not publish a start event, got %v", got)
	}
}

func TestStart_ConcurrentStartResolvesToWinner(t *testing.T) {
	exam := testExam()
	exam.DurationMinutes = 30
	winner := &models.ExamSession{
		ID:        12,
		ExamID:    exam.ID,
		StudentID: 100,
		Code:      "SES-WINNER00001",
		Status:    models.SessionInProgress,
		StartTime: time.Now(),
		EndTime:   time.Now().Add(30 * time.Minute),
	}
	// Both reads before the insert see no active session; the insert then
	// hits the partial unique index and the final read finds the winner.
	session := &MockSessionRepository{
		activeSeq: []*models.ExamSession{nil, nil, winner},
		createErr: gorm.ErrDuplicatedKey,
	}
	repo := newLifecycleRepo(session, &MockExamRepository{exam: exam, access: true})
	svc, _, publisher := newSessionFixture(repo)

	resp, err := svc.Start(context.Background(), exam.ID, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.ExamSession.ID != winner.ID {
		t.Errorf("expected winner session %d, got %d", winner.ID, resp.ExamSession.ID)
	}
	if !resp.Resumed {
		t.Error("the losing request resumes the winner's session, it does not start one")
	}
	if got := publisher.GetPublishedEvents(); len(got) != 0 {
		t.Errorf("the loser must not publish a start event for the winner's session, got %v", got)
	}
}

func TestSubmitAnswer(t *testing.T) {
	ctx := context.Background()

	newAnswerFixture := func(endTime time.Time) (*MockSessionRepository, *MockLifecycleRepository, SessionService) {
		exam := testExam()
		session := &MockSessionRepository{sessions: map[uint]*models.ExamSession{
			5: {
				ID:        5,
				ExamID:    exam.ID,
				StudentID: 100,
				Code:      "SES-ANSWER00001",
				Status:    models.SessionInProgress,
				StartTime: time.Now().Add(-10 * time.Minute),
				EndTime:   endTime,
			},
		}}
		repo := newLifecycleRepo(session, &MockExamRepository{exam: exam, access: true})
		svc, _, _ := newSessionFixture(repo)
		return session, repo, svc
	}

	t.Run("Saves_And_Counts", func(t *testing.T) {
		_, repo, svc := newAnswerFixture(time.Now().Add(20 * time.Minute))

		selected := uint(1001)
		resp, err := svc.SubmitAnswer(ctx, 5, 100, SubmitAnswerRequest{
			QuestionID:       101,
			SelectedAnswerID: &selected,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !resp.Saved || resp.Score == nil || *resp.Score != 5 {
			t.Errorf("expected saved answer worth 5 points, got %+v", resp)
		}
		if resp.AnsweredCount != 1 {
			t.Errorf("expected answered count 1, got %d", resp.AnsweredCount)
		}
		if len(repo.answer.upserted) != 1 {
			t.Fatalf("expected 1 stored answer, got %d", len(repo.answer.upserted))
		}
	})

	t.Run("Past_Deadline_Expires_And_Stores_Nothing", func(t *testing.T) {
		session, repo, svc := newAnswerFixture(time.Now().Add(-time.Minute))

		selected := uint(1001)
		_, err := svc.SubmitAnswer(ctx, 5, 100, SubmitAnswerRequest{
			QuestionID:       101,
			SelectedAnswerID: &selected,
		})

		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
		if len(repo.answer.upserted) != 0 {
			t.Errorf("late answer must not be stored, got %d", len(repo.answer.upserted))
		}
		if len(session.updates) == 0 || session.updates[len(session.updates)-1].Status != models.SessionExpired {
			t.Errorf("session must transition to expired, updates: %+v", session.updates)
		}
	})

	t.Run("Foreign_Session_Rejected", func(t *testing.T) {
		_, _, svc := newAnswerFixture(time.Now().Add(20 * time.Minute))

		selected := uint(1001)
		_, err := svc.SubmitAnswer(ctx, 5, 999, SubmitAnswerRequest{
			QuestionID:       101,
			SelectedAnswerID: &selected,
		})

		var permissionErr *PermissionError
		if !errors.As(err, &permissionErr) {
			t.Fatalf("expected PermissionError, got %v", err)
		}
	})
}
