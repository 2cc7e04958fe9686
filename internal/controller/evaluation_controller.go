package controller

import (
	"errors"
	"strconv"

	"langlearn_backend/internal/grading"
	"langlearn_backend/internal/service"
	"langlearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// EvaluationController 处理答题提交与自动批改
type EvaluationController struct {
	EvaluationService *service.EvaluationService
	ReviewService     *service.ReviewService
	StorageService    *service.StorageService
}

func NewEvaluationController(evalSvc *service.EvaluationService, reviewSvc *service.ReviewService, storageSvc *service.StorageService) *EvaluationController {
	return &EvaluationController{
		EvaluationService: evalSvc,
		ReviewService:     reviewSvc,
		StorageService:    storageSvc,
	}
}

// StartAttempt godoc
// @Summary 开始新的答题
// @Tags 答题
// @Produce  json
// @Success 201 {object} util.Response{data=model.Attempt}
// @Failure 401 {object} util.Response
// @Router /api/attempts [post]
// @Security BearerAuth
func (c *EvaluationController) StartAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.EvaluationService.StartAttempt(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// SubmitAnswerRequest 文本作答请求
// swagger:model SubmitAnswerRequest
type SubmitAnswerRequest struct {
	QuestionID uint    `json:"questionId" binding:"required"`
	Text       *string `json:"text"`
}

// SubmitAnswer godoc
// @Summary 提交一道题的作答
// @Description 客观题立即自动批改，主观题进入批改队列（可选AI预批）
// @Tags 答题
// @Accept  json
// @Produce  json
// @Param   id path int true "答题ID"
// @Param   body body SubmitAnswerRequest true "作答内容"
// @Success 201 {object} util.Response{data=model.Answer}
// @Failure 400 {object} util.Response "题型不支持"
// @Failure 404 {object} util.Response "答题或题目不存在"
// @Router /api/attempts/{id}/answers [post]
// @Security BearerAuth
func (c *EvaluationController) SubmitAnswer(ctx *gin.Context) {
	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.EvaluationService.EvaluateAndRecord(ctx.Request.Context(),
		uint(attemptID), req.QuestionID, req.Text, "", 0)
	if err != nil {
		c.writeEvalError(ctx, err)
		return
	}
	util.Created(ctx, answer)
}

// SubmitMediaAnswer godoc
// @Summary 提交音频/图片作答
// @Description 口语、看图说话题的媒体提交；音频会探测时长
// @Tags 答题
// @Accept  multipart/form-data
// @Produce  json
// @Param   id path int true "答题ID"
// @Param   questionId formData int true "题目ID"
// @Param   file formData file true "音频或图片文件"
// @Success 201 {object} util.Response{data=model.Answer}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/attempts/{id}/answers/media [post]
// @Security BearerAuth
func (c *EvaluationController) SubmitMediaAnswer(ctx *gin.Context) {
	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}
	questionID, err := strconv.ParseUint(ctx.PostForm("questionId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	upload, err := c.StorageService.SaveSubmissionMedia(ctx.Request.Context(), file)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.EvaluationService.EvaluateAndRecord(ctx.Request.Context(),
		uint(attemptID), uint(questionID), nil, upload.URL, upload.AudioSeconds)
	if err != nil {
		c.writeEvalError(ctx, err)
		return
	}
	util.Created(ctx, answer)
}

// SubmitAttempt godoc
// @Summary 交卷
// @Tags 答题
// @Produce  json
// @Param   id path int true "答题ID"
// @Success 200 {object} util.Response{data=model.Attempt}
// @Failure 404 {object} util.Response
// @Router /api/attempts/{id}/submit [post]
// @Security BearerAuth
func (c *EvaluationController) SubmitAttempt(ctx *gin.Context) {
	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	attempt, err := c.EvaluationService.SubmitAttempt(ctx.Request.Context(), uint(attemptID))
	if err != nil {
		c.writeEvalError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// GetAttemptTotals godoc
// @Summary 查询答题总分
// @Tags 答题
// @Produce  json
// @Param   id path int true "答题ID"
// @Success 200 {object} util.Response{data=grading.Totals}
// @Failure 404 {object} util.Response
// @Router /api/attempts/{id}/totals [get]
// @Security BearerAuth
func (c *EvaluationController) GetAttemptTotals(ctx *gin.Context) {
	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	totals, err := c.ReviewService.GetAttemptTotals(ctx.Request.Context(), uint(attemptID))
	if err != nil {
		c.writeEvalError(ctx, err)
		return
	}
	util.Success(ctx, totals)
}

func (c *EvaluationController) writeEvalError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrAnswerNotFound):
		util.NotFound(ctx)
	case errors.Is(err, grading.ErrUnsupportedType):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
