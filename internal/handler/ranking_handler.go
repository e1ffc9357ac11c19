package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/content-vault-api/internal/middleware"
	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/pkg/config"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/response"
)

type rankingService interface {
	Next(ctx context.Context, voterToken string) (*models.RankingPrompt, error)
	Vote(ctx context.Context, voterToken, categoryID, teacherID string) (*models.RankingVoteResult, error)
	Results(ctx context.Context) ([]models.RankingResult, error)
}

type voteRequest struct {
	CategoryID string `json:"categoryId" binding:"required"`
	TeacherID  string `json:"teacherId" binding:"required"`
}

// RankingHandler exposes the anonymous teacher ranking.
type RankingHandler struct {
	ranking rankingService
	cookie  config.RankingConfig
	secure  bool
}

// NewRankingHandler constructs the handler.
func NewRankingHandler(ranking rankingService, cookie config.RankingConfig, secure bool) *RankingHandler {
	return &RankingHandler{ranking: ranking, cookie: cookie, secure: secure}
}

// Next godoc
// @Summary Next unanswered ranking category
// @Tags Ranking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ranking/next [get]
func (h *RankingHandler) Next(c *gin.Context) {
	prompt, err := h.ranking.Next(c.Request.Context(), h.voterToken(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prompt, nil, middleware.ExtractMeta(c))
}

// Vote godoc
// @Summary Cast a ranking vote
// @Tags Ranking
// @Accept json
// @Produce json
// @Param payload body voteRequest true "Vote"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /ranking/votes [post]
func (h *RankingHandler) Vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "categoryId and teacherId required"))
		return
	}
	result, err := h.ranking.Vote(c.Request.Context(), h.voterToken(c), req.CategoryID, req.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Results godoc
// @Summary Ranking results per category
// @Tags Ranking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ranking/results [get]
func (h *RankingHandler) Results(c *gin.Context) {
	results, err := h.ranking.Results(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil, middleware.ExtractMeta(c))
}

// voterToken returns the ranking cookie, minting it on first contact.
func (h *RankingHandler) voterToken(c *gin.Context) string {
	if token, err := c.Cookie(h.cookie.CookieName); err == nil && token != "" {
		return token
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.CookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}
