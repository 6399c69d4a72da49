package controller

import (
	"errors"
	"testhub_backend/internal/service"
	"testhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestHubController struct {
	Service *service.TestHubService
	History *service.HistoryService
}

func NewTestHubController(svc *service.TestHubService, history *service.HistoryService) *TestHubController {
	return &TestHubController{Service: svc, History: history}
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrTopicRequired),
		errors.Is(err, util.ErrInvalidTestType),
		errors.Is(err, util.ErrInvalidAnswer):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrSessionNotFound),
		errors.Is(err, util.ErrQuestionNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrSessionCompleted),
		errors.Is(err, util.ErrSessionInProgress),
		errors.Is(err, util.ErrAlreadyAnswered),
		errors.Is(err, util.ErrNothingToRetake):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrGradingUnavailable):
		util.ServiceUnavailable(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary Start a test session
// @Description Generates questions for the topic and returns the session with its first question
// @Tags tests
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.StartTestRequest true "Topic, difficulty and test type"
// @Success 201 {object} util.Response
// @Router /tests/start [post]
func (c *TestHubController) Start(ctx *gin.Context) {
	var req service.StartTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.Service.Start(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, resp)
}

// @Summary Submit an answer
// @Description Grades the answer and returns the next question, or the final score when the session completes
// @Tags tests
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SubmitAnswerRequest true "Question id and raw answer"
// @Success 200 {object} util.Response
// @Router /tests/submit-answer [post]
func (c *TestHubController) SubmitAnswer(ctx *gin.Context) {
	var req service.SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.Service.Submit(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, resp)
}

// @Summary Continue an in-progress session
// @Tags tests
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Session id"
// @Success 200 {object} util.Response
// @Router /tests/sessions/{id}/continue [get]
func (c *TestHubController) Continue(ctx *gin.Context) {
	resp, err := c.Service.Continue(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, resp)
}

// @Summary Get session results
// @Description Full transcript of a completed session, correct answers included
// @Tags tests
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Session id"
// @Success 200 {object} util.Response
// @Router /tests/sessions/{id} [get]
func (c *TestHubController) GetResults(ctx *gin.Context) {
	resp, err := c.Service.GetResults(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, resp)
}

// @Summary Retake missed questions
// @Description Spawns a new session covering only the incorrect or unanswered questions of a completed session
// @Tags tests
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Source session id"
// @Success 201 {object} util.Response
// @Router /tests/sessions/{id}/retake-incorrect [post]
func (c *TestHubController) RetakeIncorrect(ctx *gin.Context) {
	resp, err := c.History.RetakeIncorrect(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, resp)
}

// @Summary List past sessions
// @Tags tests
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /tests/history [get]
func (c *TestHubController) ListHistory(ctx *gin.Context) {
	summaries, err := c.History.ListHistory(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, summaries)
}

// @Summary Get the generation prompt matrix
// @Tags tests
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /tests/prompts [get]
func (c *TestHubController) GetPrompts(ctx *gin.Context) {
	util.Success(ctx, c.Service.Gen.PromptMatrix())
}

// @Summary Delete a session
// @Description Removes the session and everything it owns
// @Tags tests
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Session id"
// @Success 200 {object} util.Response
// @Router /tests/sessions/{id} [delete]
func (c *TestHubController) Delete(ctx *gin.Context) {
	if err := c.Service.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"message": "Test session deleted successfully."})
}
