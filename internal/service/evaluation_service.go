package service

import (
	"context"
	"errors"
	"time"

	"langlearn_backend/internal/config"
	"langlearn_backend/internal/grading"
	"langlearn_backend/internal/model"
	"langlearn_backend/internal/repository"
	"langlearn_backend/internal/util"
	"langlearn_backend/pkg/logger"
	"langlearn_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// EvaluationService grades submissions on arrival. Objective types are
// scored synchronously by the matcher; open-ended types either go
// straight to the review queue or through the AI pre-pass first.
type EvaluationService struct {
	Store    repository.GradingStore
	Matcher  grading.Matcher
	AI       AIScorer
	AIConfig config.AIConfig
	Grading  config.GradingConfig
}

func NewEvaluationService(store repository.GradingStore, ai AIScorer, cfg *config.Config) *EvaluationService {
	classifier := grading.Classifier{AIPrePass: cfg.AI.Enabled && ai != nil}
	return &EvaluationService{
		Store:    store,
		Matcher:  grading.NewMatcher(classifier, cfg.Grading.FuzzyThreshold),
		AI:       ai,
		AIConfig: cfg.AI,
		Grading:  cfg.Grading,
	}
}

// Evaluate produces a grade outcome for one submission without touching
// storage. AI failures degrade to a deferred outcome; only an unknown
// question type is an error.
func (s *EvaluationService) Evaluate(ctx context.Context, q model.Question, submitted string) (model.GradeOutcome, error) {
	strategy, err := s.Matcher.Classifier.Classify(q.Type)
	if err != nil {
		return model.GradeOutcome{}, err
	}

	outcome, err := s.Matcher.Evaluate(q, submitted)
	if err != nil {
		return model.GradeOutcome{}, err
	}

	if strategy == grading.DeferAI && outcome.Reason == grading.ReasonSubjective {
		outcome = s.aiPrePass(ctx, q, submitted)
	}

	result := "deferred"
	if !outcome.NeedsManualReview {
		result = string(outcome.Source)
	}
	monitoring.EvaluationCounter.WithLabelValues(string(strategy), result).Inc()

	return outcome, nil
}

// aiPrePass asks the AI collaborator for a candidate grade. Provider
// errors and timeouts fail over to human review; a low-confidence score
// is recorded but keeps the answer flagged.
func (s *EvaluationService) aiPrePass(ctx context.Context, q model.Question, submitted string) model.GradeOutcome {
	res, err := s.AI.ScoreAnswer(ctx, q, submitted)
	if err != nil {
		monitoring.AIFailoverCounter.Inc()
		reason := grading.ReasonAIError
		if errors.Is(err, util.ErrAITimeout) {
			reason = grading.ReasonAITimeout
		}
		logger.Log.Warn("AI评分失败，转人工批改",
			zap.Uint("questionID", q.ID),
			zap.Error(err))
		return grading.Deferred(reason)
	}

	score := res.Score * q.Points
	correct := score > 0
	outcome := model.GradeOutcome{
		Score:     &score,
		IsCorrect: &correct,
		Feedback:  res.Feedback,
		Source:    model.SourceAI,
	}
	if res.Confidence < s.AIConfig.ConfidenceThreshold {
		outcome.NeedsManualReview = true
		outcome.Reason = grading.ReasonLowAIConf
	}
	return outcome
}

// EvaluateAndRecord grades a submission and persists the answer plus the
// attempt's recomputed totals in one transaction.
func (s *EvaluationService) EvaluateAndRecord(ctx context.Context, attemptID, questionID uint, submittedText *string, mediaURL string, mediaSeconds float64) (*model.Answer, error) {
	text := ""
	if submittedText != nil {
		text = *submittedText
	}

	var answer *model.Answer
	err := s.Store.Transaction(ctx, func(tx repository.GradingStore) error {
		attempt, err := tx.LockAttempt(ctx, attemptID)
		if err != nil {
			return err
		}

		q, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}

		outcome, err := s.Evaluate(ctx, *q, text)
		if err != nil {
			return err
		}

		answer = &model.Answer{
			AttemptID:     attemptID,
			QuestionID:    questionID,
			SubmittedText: submittedText,
			MediaURL:      mediaURL,
			MediaSeconds:  mediaSeconds,
		}
		answer.ApplyOutcome(outcome, nil, time.Now())
		if err := tx.CreateAnswer(ctx, answer); err != nil {
			return err
		}

		return recomputeLocked(ctx, tx, attempt, s.Grading.PassPercent)
	})
	if err != nil {
		return nil, err
	}
	return answer, nil
}

// StartAttempt opens a new attempt for a student.
func (s *EvaluationService) StartAttempt(ctx context.Context, userID uint) (*model.Attempt, error) {
	attempt := &model.Attempt{UserID: userID, Status: model.AttemptInProgress}
	if err := s.Store.CreateAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// SubmitAttempt closes an attempt for new answers and recomputes its
// totals. If nothing waits on review the attempt goes straight to
// graded.
func (s *EvaluationService) SubmitAttempt(ctx context.Context, attemptID uint) (*model.Attempt, error) {
	err := s.Store.Transaction(ctx, func(tx repository.GradingStore) error {
		attempt, err := tx.LockAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		now := time.Now()
		if err := tx.MarkSubmitted(ctx, attemptID, now); err != nil {
			return err
		}
		attempt.Status = model.AttemptSubmitted
		attempt.SubmittedAt = &now
		return recomputeLocked(ctx, tx, attempt, s.Grading.PassPercent)
	})
	if err != nil {
		return nil, err
	}
	return s.Store.GetAttempt(ctx, attemptID)
}

// recomputeLocked re-derives the attempt's totals from its full answer
// set. Caller must already hold the attempt row lock.
func recomputeLocked(ctx context.Context, tx repository.GradingStore, attempt *model.Attempt, passPercent float64) error {
	answers, err := tx.GetAnswersForAttempt(ctx, attempt.ID)
	if err != nil {
		return err
	}

	totals := grading.Aggregate(answers, passPercent)
	status := attempt.Status
	if status != model.AttemptInProgress && grading.FullyGraded(answers) {
		status = model.AttemptGraded
	}
	return tx.SaveAttemptTotals(ctx, attempt.ID, totals, status)
}
