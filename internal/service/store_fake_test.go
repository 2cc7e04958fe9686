package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"langlearn_backend/internal/grading"
	"langlearn_backend/internal/model"
	"langlearn_backend/internal/repository"
	"langlearn_backend/internal/util"
	"langlearn_backend/pkg/logger"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	m.Run()
}

// fakeStore is an in-memory GradingStore. It counts lock and totals
// writes so tests can assert the once-per-attempt recompute contract.
type fakeStore struct {
	questions map[uint]*model.Question
	answers   map[uint]*model.Answer
	attempts  map[uint]*model.Attempt

	nextAnswerID uint
	lockCalls    map[uint]int
	totalsSaves  map[uint]int
}

var _ repository.GradingStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		questions:   make(map[uint]*model.Question),
		answers:     make(map[uint]*model.Answer),
		attempts:    make(map[uint]*model.Attempt),
		lockCalls:   make(map[uint]int),
		totalsSaves: make(map[uint]int),
	}
}

func (s *fakeStore) addQuestion(q model.Question) *model.Question {
	s.questions[q.ID] = &q
	return &q
}

func (s *fakeStore) addAttempt(a model.Attempt) *model.Attempt {
	s.attempts[a.ID] = &a
	return &a
}

func (s *fakeStore) addAnswer(a model.Answer) *model.Answer {
	if a.ID == 0 {
		s.nextAnswerID++
		a.ID = s.nextAnswerID
	} else if a.ID > s.nextAnswerID {
		s.nextAnswerID = a.ID
	}
	s.answers[a.ID] = &a
	return &a
}

func (s *fakeStore) GetQuestion(ctx context.Context, id uint) (*model.Question, error) {
	q, ok := s.questions[id]
	if !ok {
		return nil, util.ErrQuestionNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *fakeStore) CreateAnswer(ctx context.Context, a *model.Answer) error {
	s.nextAnswerID++
	a.ID = s.nextAnswerID
	cp := *a
	s.answers[a.ID] = &cp
	return nil
}

func (s *fakeStore) GetAnswer(ctx context.Context, id uint) (*model.Answer, error) {
	a, ok := s.answers[id]
	if !ok {
		return nil, util.ErrAnswerNotFound
	}
	cp := *a
	if q, ok := s.questions[a.QuestionID]; ok {
		cp.Question = *q
	}
	return &cp, nil
}

func (s *fakeStore) SaveAnswer(ctx context.Context, a *model.Answer) error {
	if _, ok := s.answers[a.ID]; !ok {
		return util.ErrAnswerNotFound
	}
	cp := *a
	cp.Question = model.Question{}
	s.answers[a.ID] = &cp
	return nil
}

func (s *fakeStore) GetAnswersForAttempt(ctx context.Context, attemptID uint) ([]model.Answer, error) {
	var out []model.Answer
	for _, a := range s.answers {
		if a.AttemptID != attemptID {
			continue
		}
		cp := *a
		if q, ok := s.questions[a.QuestionID]; ok {
			cp.Question = *q
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) CreateAttempt(ctx context.Context, a *model.Attempt) error {
	if a.ID == 0 {
		a.ID = uint(len(s.attempts) + 1)
	}
	cp := *a
	s.attempts[a.ID] = &cp
	return nil
}

func (s *fakeStore) GetAttempt(ctx context.Context, id uint) (*model.Attempt, error) {
	a, ok := s.attempts[id]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) LockAttempt(ctx context.Context, id uint) (*model.Attempt, error) {
	s.lockCalls[id]++
	return s.GetAttempt(ctx, id)
}

func (s *fakeStore) MarkSubmitted(ctx context.Context, attemptID uint, at time.Time) error {
	a, ok := s.attempts[attemptID]
	if !ok {
		return util.ErrAttemptNotFound
	}
	a.Status = model.AttemptSubmitted
	a.SubmittedAt = &at
	return nil
}

func (s *fakeStore) SaveAttemptTotals(ctx context.Context, attemptID uint, totals grading.Totals, status model.AttemptStatus) error {
	a, ok := s.attempts[attemptID]
	if !ok {
		return util.ErrAttemptNotFound
	}
	s.totalsSaves[attemptID]++
	a.TotalScore = totals.TotalScore
	a.MaxScore = totals.MaxScore
	a.Passed = totals.Passed
	a.Status = status
	return nil
}

func (s *fakeStore) FlaggedAttempts(ctx context.Context, filter model.ReviewFilter) ([]model.Attempt, error) {
	byAttempt := make(map[uint][]model.Answer)
	for _, a := range s.answers {
		if !a.NeedsManualReview {
			continue
		}
		cp := *a
		if q, ok := s.questions[a.QuestionID]; ok {
			cp.Question = *q
		}
		if filter.Skill != "" && cp.Question.Skill != filter.Skill {
			continue
		}
		byAttempt[a.AttemptID] = append(byAttempt[a.AttemptID], cp)
	}

	var out []model.Attempt
	for attemptID, answers := range byAttempt {
		attempt, ok := s.attempts[attemptID]
		if !ok {
			continue
		}
		cp := *attempt
		sort.Slice(answers, func(i, j int) bool { return answers[i].ID < answers[j].ID })
		cp.Answers = answers
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) CountFlaggedAnswers(ctx context.Context) (int64, error) {
	var n int64
	for _, a := range s.answers {
		if a.NeedsManualReview {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) Transaction(ctx context.Context, fn func(repository.GradingStore) error) error {
	return fn(s)
}
