package repository

import (
	"context"
	"errors"
	"time"

	"langlearn_backend/internal/grading"
	"langlearn_backend/internal/model"
	"langlearn_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GradingStore is the persistence boundary of the evaluation and
// reconciliation engine. The only assumption it makes of the backing
// storage is a per-attempt atomic read-modify-write: LockAttempt inside
// Transaction must serialize writers touching the same attempt.
type GradingStore interface {
	GetQuestion(ctx context.Context, id uint) (*model.Question, error)
	CreateAnswer(ctx context.Context, a *model.Answer) error
	GetAnswer(ctx context.Context, id uint) (*model.Answer, error)
	SaveAnswer(ctx context.Context, a *model.Answer) error
	GetAnswersForAttempt(ctx context.Context, attemptID uint) ([]model.Answer, error)
	CreateAttempt(ctx context.Context, a *model.Attempt) error
	GetAttempt(ctx context.Context, id uint) (*model.Attempt, error)
	LockAttempt(ctx context.Context, id uint) (*model.Attempt, error)
	MarkSubmitted(ctx context.Context, attemptID uint, at time.Time) error
	SaveAttemptTotals(ctx context.Context, attemptID uint, totals grading.Totals, status model.AttemptStatus) error
	FlaggedAttempts(ctx context.Context, filter model.ReviewFilter) ([]model.Attempt, error)
	CountFlaggedAnswers(ctx context.Context) (int64, error)
	Transaction(ctx context.Context, fn func(GradingStore) error) error
}

// GradingRepository implements GradingStore on gorm. It spans Answer and
// Attempt because the engine's writes are per-attempt transactional;
// single-aggregate repositories cannot offer that.
type GradingRepository struct {
	DB *gorm.DB
}

var _ GradingStore = (*GradingRepository)(nil)

func NewGradingRepository(db *gorm.DB) *GradingRepository {
	return &GradingRepository{DB: db}
}

func (r *GradingRepository) GetQuestion(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.WithContext(ctx).First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *GradingRepository) CreateAnswer(ctx context.Context, a *model.Answer) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

// GetAnswer loads an answer with its question; the question carries the
// points cap every score write is validated against.
func (r *GradingRepository) GetAnswer(ctx context.Context, id uint) (*model.Answer, error) {
	var a model.Answer
	err := r.DB.WithContext(ctx).Preload("Question").First(&a, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAnswerNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GradingRepository) SaveAnswer(ctx context.Context, a *model.Answer) error {
	return r.DB.WithContext(ctx).Omit("Question").Save(a).Error
}

func (r *GradingRepository) GetAnswersForAttempt(ctx context.Context, attemptID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.WithContext(ctx).
		Preload("Question").
		Where("attempt_id = ?", attemptID).
		Order("id").
		Find(&answers).Error
	return answers, err
}

func (r *GradingRepository) CreateAttempt(ctx context.Context, a *model.Attempt) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *GradingRepository) GetAttempt(ctx context.Context, id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.DB.WithContext(ctx).First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// LockAttempt takes the per-attempt row lock that serializes concurrent
// reconciliation. Only meaningful inside a Transaction.
func (r *GradingRepository) LockAttempt(ctx context.Context, id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *GradingRepository) SaveAttemptTotals(ctx context.Context, attemptID uint, totals grading.Totals, status model.AttemptStatus) error {
	return r.DB.WithContext(ctx).
		Model(&model.Attempt{}).
		Where("id = ?", attemptID).
		Updates(map[string]interface{}{
			"total_score": totals.TotalScore,
			"max_score":   totals.MaxScore,
			"passed":      totals.Passed,
			"status":      status,
		}).Error
}

func (r *GradingRepository) MarkSubmitted(ctx context.Context, attemptID uint, at time.Time) error {
	return r.DB.WithContext(ctx).
		Model(&model.Attempt{}).
		Where("id = ?", attemptID).
		Updates(map[string]interface{}{
			"status":       model.AttemptSubmitted,
			"submitted_at": at,
		}).Error
}

// FlaggedAttempts returns attempts that still have answers waiting for
// review, with only those answers (and their questions) attached.
func (r *GradingRepository) FlaggedAttempts(ctx context.Context, filter model.ReviewFilter) ([]model.Attempt, error) {
	var attempts []model.Attempt
	flagged := r.DB.Model(&model.Answer{}).
		Select("DISTINCT answers.attempt_id").
		Where("answers.needs_manual_review = ?", true)
	if filter.Skill != "" {
		flagged = flagged.
			Joins("JOIN questions ON questions.id = answers.question_id").
			Where("questions.skill = ?", filter.Skill)
	}
	query := r.DB.WithContext(ctx).
		Preload("Answers", "needs_manual_review = ?", true).
		Preload("Answers.Question").
		Where("id IN (?)", flagged).
		Order("submitted_at")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *GradingRepository) CountFlaggedAnswers(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.Answer{}).
		Where("needs_manual_review = ?", true).
		Count(&count).Error
	return count, err
}

// Transaction runs fn against a store bound to one transaction.
func (r *GradingRepository) Transaction(ctx context.Context, fn func(GradingStore) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GradingRepository{DB: tx})
	})
}
