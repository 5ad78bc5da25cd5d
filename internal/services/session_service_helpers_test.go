package services

import (
	"errors"
	"testing"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

func testExam() *models.Exam {
	return &models.Exam{
		ID:         1,
		TotalScore: 10,
		Questions: []models.ExamQuestion{
			{
				ID:   101,
				Type: models.SingleChoice,
				Text: "Pick one",
				Answers: []models.QuestionAnswer{
					{ID: 1001, QuestionID: 101, Text: "right", IsCorrect: true},
					{ID: 1002, QuestionID: 101, Text: "wrong"},
				},
			},
			{
				ID:   102,
				Type: models.Essay,
				Text: "Explain",
			},
		},
	}
}

func TestBuildAnswer(t *testing.T) {
	svc := &sessionService{}
	session := &models.ExamSession{ID: 7}
	exam := testExam()

	t.Run("Correct_Choice_Scores_Full_Points", func(t *testing.T) {
		selected := uint(1001)
		answer, err := svc.buildAnswer(session, exam, &exam.Questions[0], SubmitAnswerRequest{
			QuestionID:       101,
			SelectedAnswerID: &selected,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if answer.Score == nil || *answer.Score != 5 {
			t.Errorf("expected score 5 (10 points over 2 questions), got %v", answer.Score)
		}
		if answer.IsCorrect == nil || !*answer.IsCorrect {
			t.Error("expected answer marked correct")
		}
	})

	t.Run("Wrong_Choice_Scores_Zero", func(t *testing.T) {
		selected := uint(1002)
		answer, err := svc.buildAnswer(session, exam, &exam.Questions[0], SubmitAnswerRequest{
			QuestionID:       101,
			SelectedAnswerID: &selected,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if answer.Score == nil || *answer.Score != 0 {
			t.Errorf("expected score 0, got %v", answer.Score)
		}
		if answer.IsCorrect == nil || *answer.IsCorrect {
			t.Error("expected answer marked wrong")
		}
	})

	t.Run("Choice_Without_Selection_Rejected", func(t *testing.T) {
		_, err := svc.buildAnswer(session, exam, &exam.Questions[0], SubmitAnswerRequest{QuestionID: 101})

		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if validationErr.Field != "selected_answer_id" {
			t.Errorf("expected selected_answer_id field, got %s", validationErr.Field)
		}
	})

	t.Run("Foreign_Option_Rejected", func(t *testing.T) {
		selected := uint(9999)
		_, err := svc.buildAnswer(session, exam, &exam.Questions[0], SubmitAnswerRequest{
			QuestionID:       101,
			SelectedAnswerID: &selected,
		})

		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("Essay_Stored_Without_Score", func(t *testing.T) {
		text := "a long explanation"
		answer, err := svc.buildAnswer(session, exam, &exam.Questions[1], SubmitAnswerRequest{
			QuestionID: 102,
			AnswerText: &text,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if answer.Score != nil || answer.IsCorrect != nil {
			t.Error("essay answers must stay unscored")
		}
		if answer.AnswerText == nil || *answer.AnswerText != text {
			t.Errorf("expected stored answer text, got %v", answer.AnswerText)
		}
	})

	t.Run("Blank_Essay_Rejected", func(t *testing.T) {
		blank := "   "
		_, err := svc.buildAnswer(session, exam, &exam.Questions[1], SubmitAnswerRequest{
			QuestionID: 102,
			AnswerText: &blank,
		})

		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestPointsPerQuestion(t *testing.T) {
	if got := pointsPerQuestion(testExam()); got != 5 {
		t.Errorf("expected 5 points per question, got %v", got)
	}
	if got := pointsPerQuestion(&models.Exam{TotalScore: 10}); got != 0 {
		t.Errorf("expected 0 for exam without questions, got %v", got)
	}
}

func TestShuffledQuestions(t *testing.T) {
	exam := testExam()

	t.Run("Deterministic_Per_Code", func(t *testing.T) {
		first := shuffledQuestions(exam, "SES-AAAA")
		second := shuffledQuestions(exam, "SES-AAAA")

		if len(first) != len(exam.Questions) {
			t.Fatalf("expected %d questions, got %d", len(exam.Questions), len(first))
		}
		for i := range first {
			if first[i].ID != second[i].ID {
				t.Errorf("question order differs at %d for the same code", i)
			}
		}
	})

	t.Run("Correctness_Is_Stripped", func(t *testing.T) {
		questions := shuffledQuestions(exam, "SES-AAAA")
		for _, q := range questions {
			if q.ID != 101 {
				continue
			}
			if len(q.Answers) != 2 {
				t.Fatalf("expected 2 options, got %d", len(q.Answers))
			}
			for _, opt := range q.Answers {
				if opt.ID == 0 || opt.Text == "" {
					t.Error("options should keep id and text")
				}
			}
		}
	})

	t.Run("All_Questions_Delivered", func(t *testing.T) {
		questions := shuffledQuestions(exam, "SES-BBBB")
		seen := make(map[uint]bool)
		for _, q := range questions {
			seen[q.ID] = true
		}
		for _, q := range exam.Questions {
			if !seen[q.ID] {
				t.Errorf("question %d missing from delivery", q.ID)
			}
		}
	})
}

func TestFindQuestion(t *testing.T) {
	exam := testExam()
	if q := findQuestion(exam, 102); q == nil || q.ID != 102 {
		t.Errorf("expected question 102, got %v", q)
	}
	if q := findQuestion(exam, 999); q != nil {
		t.Errorf("expected nil for unknown question, got %v", q)
	}
}
