package repository

import (
	"errors"

	"langlearn_backend/internal/model"
	"langlearn_backend/internal/util"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) ListBySkill(skill string, limit int) ([]model.Question, error) {
	var questions []model.Question
	query := r.DB.Order("id")
	if skill != "" {
		query = query.Where("skill = ?", skill)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) Update(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Question{}, id).Error
}
