package service

import (
	"langlearn_backend/internal/model"
	"langlearn_backend/internal/repository"
)

// QuestionService 处理题库相关的业务逻辑
type QuestionService struct {
	QuestionRepo *repository.QuestionRepository
}

func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{QuestionRepo: questionRepo}
}

func (s *QuestionService) Create(q *model.Question) error {
	return s.QuestionRepo.Create(q)
}

func (s *QuestionService) GetByID(id uint) (*model.Question, error) {
	return s.QuestionRepo.FindByID(id)
}

func (s *QuestionService) ListBySkill(skill string, limit int) ([]model.Question, error) {
	return s.QuestionRepo.ListBySkill(skill, limit)
}

func (s *QuestionService) Update(q *model.Question) error {
	return s.QuestionRepo.Update(q)
}

func (s *QuestionService) Delete(id uint) error {
	return s.QuestionRepo.Delete(id)
}
