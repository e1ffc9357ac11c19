package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/pkg/config"
)

type rankingServiceStub struct {
	tokens []string
	vote   [2]string
}

func (s *rankingServiceStub) Next(ctx context.Context, voterToken string) (*models.RankingPrompt, error) {
	s.tokens = append(s.tokens, voterToken)
	return &models.RankingPrompt{Teachers: []models.Teacher{}, Done: true}, nil
}

func (s *rankingServiceStub) Vote(ctx context.Context, voterToken, categoryID, teacherID string) (*models.RankingVoteResult, error) {
	s.tokens = append(s.tokens, voterToken)
	s.vote = [2]string{categoryID, teacherID}
	return &models.RankingVoteResult{Recorded: true}, nil
}

func (s *rankingServiceStub) Results(ctx context.Context) ([]models.RankingResult, error) {
	return []models.RankingResult{}, nil
}

func newRankingHandler(stub *rankingServiceStub) *RankingHandler {
	return NewRankingHandler(stub, config.RankingConfig{CookieName: "ranking_token", CookieTTL: time.Hour}, false)
}

func TestRankingHandlerMintsVoterCookie(t *testing.T) {
	stub := &rankingServiceStub{}
	h := newRankingHandler(stub)

	c, w := newGinContext(http.MethodGet, "/ranking/next", nil, "")
	h.Next(c)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "ranking_token", cookies[0].Name)
	assert.Equal(t, cookies[0].Value, stub.tokens[0])

	c, w = newGinContext(http.MethodPost, "/ranking/votes", bytes.NewBufferString(`{"categoryId":"c1","teacherId":"t1"}`), "application/json")
	c.Request.AddCookie(&http.Cookie{Name: "ranking_token", Value: "existing"})
	h.Vote(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, "existing", stub.tokens[1])
	assert.Equal(t, [2]string{"c1", "t1"}, stub.vote)
}

func TestRankingHandlerVoteRequiresIDs(t *testing.T) {
	h := newRankingHandler(&rankingServiceStub{})
	c, w := newGinContext(http.MethodPost, "/ranking/votes", bytes.NewBufferString(`{"categoryId":"c1"}`), "application/json")
	h.Vote(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
