package controller

import (
	"errors"
	"strconv"

	"langlearn_backend/internal/model"
	"langlearn_backend/internal/service"
	"langlearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ReviewController 处理人工批改队列与批改提交
type ReviewController struct {
	ReviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

// ListPending godoc
// @Summary 待批改列表
// @Description 按优先级排序返回待批改的答题，可按技能过滤
// @Tags 批改
// @Produce  json
// @Param   skill query string false "技能过滤(writing/speaking/...)"
// @Param   limit query int false "数量上限"
// @Success 200 {object} util.Response{data=[]service.RankedReviewItem}
// @Router /api/reviews/pending [get]
// @Security BearerAuth
func (c *ReviewController) ListPending(ctx *gin.Context) {
	var filter model.ReviewFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	items, err := c.ReviewService.PendingReviews(ctx.Request.Context(), filter)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// PendingCount godoc
// @Summary 待批改数量
// @Tags 批改
// @Produce  json
// @Success 200 {object} util.Response{data=object}
// @Router /api/reviews/count [get]
// @Security BearerAuth
func (c *ReviewController) PendingCount(ctx *gin.Context) {
	count, err := c.ReviewService.PendingCount(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"count": count})
}

// SubmitReview godoc
// @Summary 提交一条批改
// @Description 老师给一条作答打分并反馈，自动重算该答题总分
// @Tags 批改
// @Accept  json
// @Produce  json
// @Param   body body service.ReviewItem true "批改内容"
// @Success 200 {object} util.Response{data=service.ReconciliationResult}
// @Failure 400 {object} util.Response "分数超出范围"
// @Failure 404 {object} util.Response "作答不存在"
// @Router /api/reviews [post]
// @Security BearerAuth
func (c *ReviewController) SubmitReview(ctx *gin.Context) {
	var item service.ReviewItem
	if err := ctx.ShouldBindJSON(&item); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reviewerID := c.reviewerID(ctx)
	result, err := c.ReviewService.SubmitReview(ctx.Request.Context(), reviewerID, item, model.SourceHuman)
	if err != nil {
		c.writeReviewError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// BatchReviewRequest 批量批改请求
// swagger:model BatchReviewRequest
type BatchReviewRequest struct {
	Items []service.ReviewItem `json:"items" binding:"required,min=1"`
}

// BatchSubmitReview godoc
// @Summary 批量提交批改
// @Description 单条失败不影响其余条目；每个受影响的答题只重算一次总分
// @Tags 批改
// @Accept  json
// @Produce  json
// @Param   body body BatchReviewRequest true "批改列表"
// @Success 200 {object} util.Response{data=service.BatchReviewResult}
// @Router /api/reviews/batch [post]
// @Security BearerAuth
func (c *ReviewController) BatchSubmitReview(ctx *gin.Context) {
	var req BatchReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reviewerID := c.reviewerID(ctx)
	result, err := c.ReviewService.BatchSubmitReview(ctx.Request.Context(), reviewerID, req.Items, model.SourceHuman)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// FlagRequest 标记请求
// swagger:model FlagRequest
type FlagRequest struct {
	Reason string `json:"reason"`
}

// Flag godoc
// @Summary 标记作答待人工复核
// @Description 幂等：重复标记不报错，不清除已有分数
// @Tags 批改
// @Accept  json
// @Produce  json
// @Param   id path int true "作答ID"
// @Param   body body FlagRequest true "标记原因"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/answers/{id}/flag [post]
// @Security BearerAuth
func (c *ReviewController) Flag(ctx *gin.Context) {
	answerID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid answer id")
		return
	}

	var req FlagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ReviewService.Flag(ctx.Request.Context(), uint(answerID), req.Reason); err != nil {
		c.writeReviewError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Recompute godoc
// @Summary 重算答题总分
// @Tags 批改
// @Produce  json
// @Param   id path int true "答题ID"
// @Success 200 {object} util.Response{data=grading.Totals}
// @Failure 404 {object} util.Response
// @Router /api/attempts/{id}/recompute [post]
// @Security BearerAuth
func (c *ReviewController) Recompute(ctx *gin.Context) {
	attemptID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	totals, err := c.ReviewService.RecomputeAttempt(ctx.Request.Context(), uint(attemptID))
	if err != nil {
		c.writeReviewError(ctx, err)
		return
	}
	util.Success(ctx, totals)
}

func (c *ReviewController) reviewerID(ctx *gin.Context) *uint {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		return nil
	}
	id := claims.UserID
	return &id
}

func (c *ReviewController) writeReviewError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAnswerNotFound),
		errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrScoreOutOfRange):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
