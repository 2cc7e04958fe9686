package controller

import (
	"errors"
	"strconv"

	"langlearn_backend/internal/model"
	"langlearn_backend/internal/service"
	"langlearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuestionController 题库管理（教师/管理员）
type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

// QuestionRequest 创建/更新题目请求
// swagger:model QuestionRequest
type QuestionRequest struct {
	Skill         string  `json:"skill" binding:"required"`
	Level         string  `json:"level"`
	Type          string  `json:"type" binding:"required"`
	Prompt        string  `json:"prompt" binding:"required"`
	Options       string  `json:"options"`
	CorrectAnswer *string `json:"correctAnswer"`
	Points        float64 `json:"points" binding:"required,gt=0"`
	Explanation   string  `json:"explanation"`
}

// Create godoc
// @Summary 创建题目
// @Tags 题库
// @Accept  json
// @Produce  json
// @Param   body body QuestionRequest true "题目内容"
// @Success 201 {object} util.Response{data=model.Question}
// @Router /api/questions [post]
// @Security BearerAuth
func (c *QuestionController) Create(ctx *gin.Context) {
	var req QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q := &model.Question{
		Skill:         req.Skill,
		Level:         req.Level,
		Type:          model.QuestionType(req.Type),
		Prompt:        req.Prompt,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Points:        req.Points,
		Explanation:   req.Explanation,
	}
	if err := c.QuestionService.Create(q); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// Get godoc
// @Summary 查询题目
// @Tags 题库
// @Produce  json
// @Param   id path int true "题目ID"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 404 {object} util.Response
// @Router /api/questions/{id} [get]
// @Security BearerAuth
func (c *QuestionController) Get(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	q, err := c.QuestionService.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, q)
}

// List godoc
// @Summary 题目列表
// @Tags 题库
// @Produce  json
// @Param   skill query string false "技能过滤"
// @Param   limit query int false "数量上限"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/questions [get]
// @Security BearerAuth
func (c *QuestionController) List(ctx *gin.Context) {
	skill := ctx.Query("skill")
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))

	questions, err := c.QuestionService.ListBySkill(skill, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// Update godoc
// @Summary 更新题目
// @Tags 题库
// @Accept  json
// @Produce  json
// @Param   id path int true "题目ID"
// @Param   body body QuestionRequest true "题目内容"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 404 {object} util.Response
// @Router /api/questions/{id} [put]
// @Security BearerAuth
func (c *QuestionController) Update(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	q, err := c.QuestionService.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	var req QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q.Skill = req.Skill
	q.Level = req.Level
	q.Type = model.QuestionType(req.Type)
	q.Prompt = req.Prompt
	q.Options = req.Options
	q.CorrectAnswer = req.CorrectAnswer
	q.Points = req.Points
	q.Explanation = req.Explanation

	if err := c.QuestionService.Update(q); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// Delete godoc
// @Summary 删除题目
// @Tags 题库
// @Produce  json
// @Param   id path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/questions/{id} [delete]
// @Security BearerAuth
func (c *QuestionController) Delete(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	if err := c.QuestionService.Delete(uint(id)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
