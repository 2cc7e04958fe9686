package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"langlearn_backend/internal/config"
	"langlearn_backend/internal/grading"
	"langlearn_backend/internal/model"
	"langlearn_backend/internal/repository"
	"langlearn_backend/internal/util"
	"langlearn_backend/pkg/logger"
	"langlearn_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const pendingCountCacheKey = "langlearn:reviews:pending_count"

// ReviewItem is one override in a review submission.
type ReviewItem struct {
	AnswerID  uint    `json:"answerId" binding:"required"`
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback"`
	IsCorrect *bool   `json:"isCorrect,omitempty"`
}

// ReviewItemResult reports how one batch item fared.
type ReviewItemResult struct {
	AnswerID uint   `json:"answerId"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// BatchReviewResult is the per-item outcome of a batch review plus the
// recomputed totals of every attempt the batch touched.
type BatchReviewResult struct {
	Results  []ReviewItemResult      `json:"results"`
	Attempts map[uint]grading.Totals `json:"attempts"`
}

// ReconciliationResult is the state after a single override landed.
type ReconciliationResult struct {
	Answer *model.Answer  `json:"answer"`
	Totals grading.Totals `json:"totals"`
}

// RankedReviewItem is one attempt waiting for review, with its flagged
// answers and computed priority.
type RankedReviewItem struct {
	AttemptID    uint           `json:"attemptId"`
	UserID       uint           `json:"userId"`
	SubmittedAt  *time.Time     `json:"submittedAt,omitempty"`
	FlaggedCount int            `json:"flaggedCount"`
	Priority     float64        `json:"priority"`
	Answers      []model.Answer `json:"answers"`
}

// ReviewService owns the review queue and the reconciliation of human
// and AI overrides into answers and attempt totals.
type ReviewService struct {
	Store   repository.GradingStore
	Redis   *redis.Client
	Grading config.GradingConfig
	Review  config.ReviewConfig
}

func NewReviewService(store repository.GradingStore, rdb *redis.Client, cfg *config.Config) *ReviewService {
	return &ReviewService{
		Store:   store,
		Redis:   rdb,
		Grading: cfg.Grading,
		Review:  cfg.Review,
	}
}

// SubmitReview applies one override and recomputes the owning attempt's
// totals in a single transaction. Source is human for reviewer calls and
// ai when an external scorer reports back; reviewerID may be nil for the
// latter.
func (s *ReviewService) SubmitReview(ctx context.Context, reviewerID *uint, item ReviewItem, source model.ScoreSource) (*ReconciliationResult, error) {
	var result ReconciliationResult
	err := s.Store.Transaction(ctx, func(tx repository.GradingStore) error {
		answer, err := tx.GetAnswer(ctx, item.AnswerID)
		if err != nil {
			return err
		}

		attempt, err := tx.LockAttempt(ctx, answer.AttemptID)
		if err != nil {
			return err
		}

		if err := applyOverride(ctx, tx, answer, reviewerID, item, source); err != nil {
			return err
		}

		answers, err := tx.GetAnswersForAttempt(ctx, attempt.ID)
		if err != nil {
			return err
		}
		totals := grading.Aggregate(answers, s.Grading.PassPercent)
		status := attempt.Status
		if status != model.AttemptInProgress && grading.FullyGraded(answers) {
			status = model.AttemptGraded
		}
		if err := tx.SaveAttemptTotals(ctx, attempt.ID, totals, status); err != nil {
			return err
		}

		result = ReconciliationResult{Answer: answer, Totals: totals}
		return nil
	})
	if err != nil {
		monitoring.ReviewCounter.WithLabelValues(string(source), "rejected").Inc()
		return nil, err
	}

	monitoring.ReviewCounter.WithLabelValues(string(source), "applied").Inc()
	s.invalidatePendingCount(ctx)
	return &result, nil
}

// BatchSubmitReview applies many overrides in one transaction. Items
// fail independently; a bad item is reported in its slot and never
// aborts the rest. Totals are recomputed once per distinct attempt after
// all items have been applied.
func (s *ReviewService) BatchSubmitReview(ctx context.Context, reviewerID *uint, items []ReviewItem, source model.ScoreSource) (*BatchReviewResult, error) {
	result := &BatchReviewResult{
		Results:  make([]ReviewItemResult, 0, len(items)),
		Attempts: make(map[uint]grading.Totals),
	}

	err := s.Store.Transaction(ctx, func(tx repository.GradingStore) error {
		locked := make(map[uint]*model.Attempt)

		for _, item := range items {
			answer, err := tx.GetAnswer(ctx, item.AnswerID)
			if err != nil {
				if errors.Is(err, util.ErrAnswerNotFound) {
					result.Results = append(result.Results, ReviewItemResult{AnswerID: item.AnswerID, Error: err.Error()})
					continue
				}
				return err
			}

			if _, ok := locked[answer.AttemptID]; !ok {
				attempt, err := tx.LockAttempt(ctx, answer.AttemptID)
				if err != nil {
					return err
				}
				locked[answer.AttemptID] = attempt
			}

			if err := applyOverride(ctx, tx, answer, reviewerID, item, source); err != nil {
				if errors.Is(err, util.ErrScoreOutOfRange) {
					result.Results = append(result.Results, ReviewItemResult{AnswerID: item.AnswerID, Error: err.Error()})
					continue
				}
				return err
			}
			result.Results = append(result.Results, ReviewItemResult{AnswerID: item.AnswerID, OK: true})
		}

		for attemptID, attempt := range locked {
			answers, err := tx.GetAnswersForAttempt(ctx, attemptID)
			if err != nil {
				return err
			}
			totals := grading.Aggregate(answers, s.Grading.PassPercent)
			status := attempt.Status
			if status != model.AttemptInProgress && grading.FullyGraded(answers) {
				status = model.AttemptGraded
			}
			if err := tx.SaveAttemptTotals(ctx, attemptID, totals, status); err != nil {
				return err
			}
			result.Attempts[attemptID] = totals
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	applied := 0
	for _, r := range result.Results {
		if r.OK {
			applied++
		}
	}
	monitoring.ReviewCounter.WithLabelValues(string(source), "applied").Add(float64(applied))
	monitoring.ReviewCounter.WithLabelValues(string(source), "rejected").Add(float64(len(result.Results) - applied))
	logger.Log.Info("批量批改完成",
		zap.Int("applied", applied),
		zap.Int("failed", len(result.Results)-applied),
		zap.Int("attempts", len(result.Attempts)))
	s.invalidatePendingCount(ctx)
	return result, nil
}

// applyOverride validates the score against the question's points and
// folds the override into the answer. Out-of-range scores are rejected,
// never clamped.
func applyOverride(ctx context.Context, tx repository.GradingStore, answer *model.Answer, reviewerID *uint, item ReviewItem, source model.ScoreSource) error {
	if item.Score < 0 || item.Score > answer.Question.Points {
		return fmt.Errorf("%w: %g not in [0, %g]", util.ErrScoreOutOfRange, item.Score, answer.Question.Points)
	}

	correct := item.Score > 0
	if item.IsCorrect != nil {
		correct = *item.IsCorrect
	}

	score := item.Score
	answer.ApplyOutcome(model.GradeOutcome{
		Score:     &score,
		IsCorrect: &correct,
		Feedback:  item.Feedback,
		Source:    source,
	}, reviewerID, time.Now())

	return tx.SaveAnswer(ctx, answer)
}

// Flag marks an answer for human attention. Flagging an already-flagged
// answer is not an error, and the existing score is left alone.
func (s *ReviewService) Flag(ctx context.Context, answerID uint, reason string) error {
	answer, err := s.Store.GetAnswer(ctx, answerID)
	if err != nil {
		return err
	}
	answer.Flag(reason)
	if err := s.Store.SaveAnswer(ctx, answer); err != nil {
		return err
	}
	s.invalidatePendingCount(ctx)
	return nil
}

// PendingReviews lists attempts with flagged answers, ranked by
// priority.
func (s *ReviewService) PendingReviews(ctx context.Context, filter model.ReviewFilter) ([]RankedReviewItem, error) {
	attempts, err := s.Store.FlaggedAttempts(ctx, filter)
	if err != nil {
		return nil, err
	}

	ranked := Rank(attempts, s.Review, time.Now())
	if filter.Limit > 0 && len(ranked) > filter.Limit {
		ranked = ranked[:filter.Limit]
	}
	return ranked, nil
}

// Rank orders attempts awaiting review by descending priority:
//
//	priority = ageInDays*AgeWeight + flaggedCount*FlagWeight + SkillBoost
//
// where SkillBoost applies when any flagged answer belongs to a
// high-weight skill. Ties break by earliest submission. The sort is
// stable: the same input always yields the same order.
func Rank(attempts []model.Attempt, cfg config.ReviewConfig, now time.Time) []RankedReviewItem {
	highWeight := make(map[string]bool, len(cfg.HighWeightSkills))
	for _, skill := range cfg.HighWeightSkills {
		highWeight[skill] = true
	}

	items := make([]RankedReviewItem, 0, len(attempts))
	for _, attempt := range attempts {
		ref := attempt.CreatedAt
		if attempt.SubmittedAt != nil {
			ref = *attempt.SubmittedAt
		}
		ageDays := now.Sub(ref).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}

		boost := 0.0
		for _, a := range attempt.Answers {
			if highWeight[a.Question.Skill] {
				boost = cfg.SkillBoost
				break
			}
		}

		items = append(items, RankedReviewItem{
			AttemptID:    attempt.ID,
			UserID:       attempt.UserID,
			SubmittedAt:  attempt.SubmittedAt,
			FlaggedCount: len(attempt.Answers),
			Priority:     ageDays*cfg.AgeWeight + float64(len(attempt.Answers))*cfg.FlagWeight + boost,
			Answers:      attempt.Answers,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		ti := items[i].SubmittedAt
		tj := items[j].SubmittedAt
		if ti != nil && tj != nil && !ti.Equal(*tj) {
			return ti.Before(*tj)
		}
		return items[i].AttemptID < items[j].AttemptID
	})
	return items
}

// PendingCount returns how many answers currently wait for review,
// served from a short-lived cache when one is configured.
func (s *ReviewService) PendingCount(ctx context.Context) (int64, error) {
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, pendingCountCacheKey).Result(); err == nil {
			if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return n, nil
			}
		}
	}

	count, err := s.Store.CountFlaggedAnswers(ctx)
	if err != nil {
		return 0, err
	}

	if s.Redis != nil {
		if err := s.Redis.Set(ctx, pendingCountCacheKey, count, 30*time.Second).Err(); err != nil {
			logger.Log.Warn("缓存待批改数量失败", zap.Error(err))
		}
	}
	return count, nil
}

func (s *ReviewService) invalidatePendingCount(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, pendingCountCacheKey).Err(); err != nil {
		logger.Log.Warn("清除待批改数量缓存失败", zap.Error(err))
	}
}

// RecomputeAttempt re-derives one attempt's totals from its current
// answer set under the attempt lock.
func (s *ReviewService) RecomputeAttempt(ctx context.Context, attemptID uint) (grading.Totals, error) {
	var totals grading.Totals
	err := s.Store.Transaction(ctx, func(tx repository.GradingStore) error {
		attempt, err := tx.LockAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		answers, err := tx.GetAnswersForAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		totals = grading.Aggregate(answers, s.Grading.PassPercent)
		status := attempt.Status
		if status != model.AttemptInProgress && grading.FullyGraded(answers) {
			status = model.AttemptGraded
		}
		return tx.SaveAttemptTotals(ctx, attemptID, totals, status)
	})
	return totals, err
}

// GetAttemptTotals returns the stored totals of an attempt.
func (s *ReviewService) GetAttemptTotals(ctx context.Context, attemptID uint) (grading.Totals, error) {
	attempt, err := s.Store.GetAttempt(ctx, attemptID)
	if err != nil {
		return grading.Totals{}, err
	}
	return grading.Totals{
		TotalScore: attempt.TotalScore,
		MaxScore:   attempt.MaxScore,
		Passed:     attempt.Passed,
	}, nil
}
