package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/internal/models"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
)

const (
	catKindest     = "8f0c6f5e-1a52-4c1e-9d1b-000000000c01"
	catFunniest    = "8f0c6f5e-1a52-4c1e-9d1b-000000000c02"
	teacherBudi    = "3b7d2a10-6e4f-4b8a-8c55-0000000000a1"
	teacherAni     = "3b7d2a10-6e4f-4b8a-8c55-0000000000a2"
	teacherRetired = "3b7d2a10-6e4f-4b8a-8c55-0000000000a3"
)

type fakeRankingRepo struct {
	mu         sync.Mutex
	categories []models.RankingCategory
	teachers   []models.Teacher
	votes      map[string]string // category|hash -> teacher
}

func newFakeRankingRepo() *fakeRankingRepo {
	return &fakeRankingRepo{
		categories: []models.RankingCategory{
			{ID: catKindest, Slug: "kindest", Title: "Kindest", SortOrder: 1},
			{ID: catFunniest, Slug: "funniest", Title: "Funniest", SortOrder: 2},
		},
		teachers: []models.Teacher{
			{ID: teacherBudi, Name: "Budi", Active: true},
			{ID: teacherAni, Name: "Ani", Active: true},
			{ID: teacherRetired, Name: "Retired", Active: false},
		},
		votes: map[string]string{},
	}
}

func (r *fakeRankingRepo) ListCategories(ctx context.Context) ([]models.RankingCategory, error) {
	return r.categories, nil
}

func (r *fakeRankingRepo) GetCategory(ctx context.Context, id string) (*models.RankingCategory, error) {
	for _, category := range r.categories {
		if category.ID == id {
			c := category
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeRankingRepo) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	return r.teachers, nil
}

func (r *fakeRankingRepo) ListActiveTeachers(ctx context.Context) ([]models.Teacher, error) {
	var out []models.Teacher
	for _, teacher := range r.teachers {
		if teacher.Active {
			out = append(out, teacher)
		}
	}
	return out, nil
}

func (r *fakeRankingRepo) GetActiveTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	for _, teacher := range r.teachers {
		if teacher.ID == id && teacher.Active {
			t := teacher
			return &t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeRankingRepo) NextCategory(ctx context.Context, tokenHash string) (*models.RankingCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, category := range r.categories {
		if _, voted := r.votes[category.ID+"|"+tokenHash]; !voted {
			c := category
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeRankingRepo) CastVote(ctx context.Context, vote *models.RankingVote) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := vote.CategoryID + "|" + vote.TokenHash
	if _, ok := r.votes[key]; ok {
		return false, nil
	}
	r.votes[key] = vote.TeacherID
	return true, nil
}

func (r *fakeRankingRepo) Tallies(ctx context.Context) ([]models.RankingTally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[[2]string]int{}
	for key, teacher := range r.votes {
		category, _, _ := strings.Cut(key, "|")
		counts[[2]string{category, teacher}]++
	}
	var out []models.RankingTally
	for key, n := range counts {
		out = append(out, models.RankingTally{CategoryID: key[0], TeacherID: key[1], Votes: n})
	}
	return out, nil
}

func TestRankingServiceHashTokenUsesSecret(t *testing.T) {
	a := NewRankingService(newFakeRankingRepo(), "secret-a", nil)
	b := NewRankingService(newFakeRankingRepo(), "secret-b", nil)

	assert.Len(t, a.HashToken("voter"), 64)
	assert.Equal(t, a.HashToken("voter"), a.HashToken("voter"))
	assert.NotEqual(t, a.HashToken("voter"), b.HashToken("voter"))
}

func TestRankingServiceVoteFlow(t *testing.T) {
	svc := NewRankingService(newFakeRankingRepo(), "secret", nil)
	ctx := context.Background()

	prompt, err := svc.Next(ctx, "voter-1")
	require.NoError(t, err)
	require.NotNil(t, prompt.Category)
	assert.Equal(t, catKindest, prompt.Category.ID)
	assert.Len(t, prompt.Teachers, 2)

	result, err := svc.Vote(ctx, "voter-1", catKindest, teacherBudi)
	require.NoError(t, err)
	assert.True(t, result.Recorded)
	require.NotNil(t, result.NextCategory)
	assert.Equal(t, catFunniest, result.NextCategory.ID)

	again, err := svc.Vote(ctx, "voter-1", catKindest, teacherAni)
	require.NoError(t, err)
	assert.False(t, again.Recorded)
	assert.True(t, again.AlreadyVoted)

	_, err = svc.Vote(ctx, "voter-1", catFunniest, teacherBudi)
	require.NoError(t, err)
	done, err := svc.Next(ctx, "voter-1")
	require.NoError(t, err)
	assert.True(t, done.Done)
	assert.Nil(t, done.Category)
}

func TestRankingServiceVoteRejectsUnknownTargets(t *testing.T) {
	svc := NewRankingService(newFakeRankingRepo(), "secret", nil)
	ctx := context.Background()

	_, err := svc.Vote(ctx, "voter-1", "missing", teacherBudi)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Vote(ctx, "voter-1", "8f0c6f5e-1a52-4c1e-9d1b-000000000c99", teacherBudi)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Vote(ctx, "voter-1", catKindest, "not-a-uuid")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Vote(ctx, "voter-1", catKindest, teacherRetired)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Vote(ctx, "", catKindest, teacherBudi)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRankingServiceResults(t *testing.T) {
	repo := newFakeRankingRepo()
	svc := NewRankingService(repo, "secret", nil)
	ctx := context.Background()

	for _, voter := range []string{"v1", "v2", "v3"} {
		_, err := svc.Vote(ctx, voter, catKindest, teacherBudi)
		require.NoError(t, err)
	}
	_, err := svc.Vote(ctx, "v4", catKindest, teacherAni)
	require.NoError(t, err)

	results, err := svc.Results(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	kindest := results[0]
	assert.Equal(t, 4, kindest.TotalVotes)
	require.Len(t, kindest.Entries, 2)
	assert.Equal(t, "Budi", kindest.Entries[0].TeacherName)
	assert.Equal(t, 100.0, kindest.Entries[0].Percent)
	assert.Equal(t, 33.3, kindest.Entries[1].Percent)

	funniest := results[1]
	assert.Equal(t, 0, funniest.TotalVotes)
	require.Len(t, funniest.Entries, 2)
	assert.Equal(t, "Ani", funniest.Entries[0].TeacherName)
	assert.Zero(t, funniest.Entries[0].Percent)
}
