package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/pkg/database"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
)

type rankingRepository interface {
	ListCategories(ctx context.Context) ([]models.RankingCategory, error)
	GetCategory(ctx context.Context, id string) (*models.RankingCategory, error)
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListActiveTeachers(ctx context.Context) ([]models.Teacher, error)
	GetActiveTeacher(ctx context.Context, id string) (*models.Teacher, error)
	NextCategory(ctx context.Context, tokenHash string) (*models.RankingCategory, error)
	CastVote(ctx context.Context, vote *models.RankingVote) (bool, error)
	Tallies(ctx context.Context) ([]models.RankingTally, error)
}

// RankingService runs the anonymous teacher ranking survey. Voters are known
// only by a hash of their cookie token.
type RankingService struct {
	repo   rankingRepository
	secret string
	logger *zap.Logger
}

// NewRankingService constructs the service.
func NewRankingService(repo rankingRepository, secret string, logger *zap.Logger) *RankingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{repo: repo, secret: secret, logger: logger}
}

// HashToken derives the stored voter identity from the cookie token.
func (s *RankingService) HashToken(token string) string {
	sum := sha256.Sum256([]byte(token + s.secret))
	return hex.EncodeToString(sum[:])
}

// Next returns the first category the voter has not answered with the
// candidates to choose from.
func (s *RankingService) Next(ctx context.Context, voterToken string) (*models.RankingPrompt, error) {
	if voterToken == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "voter token required")
	}
	category, err := s.repo.NextCategory(ctx, s.HashToken(voterToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.RankingPrompt{Teachers: []models.Teacher{}, Done: true}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ranking category")
	}
	teachers, err := s.repo.ListActiveTeachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	if teachers == nil {
		teachers = []models.Teacher{}
	}
	return &models.RankingPrompt{Category: category, Teachers: teachers}, nil
}

// Vote records one vote per voter and category. A repeated vote is reported
// as AlreadyVoted, not as an error.
func (s *RankingService) Vote(ctx context.Context, voterToken, categoryID, teacherID string) (*models.RankingVoteResult, error) {
	if voterToken == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "voter token required")
	}
	if !isUUID(categoryID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
	}
	if !isUUID(teacherID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	if _, err := s.repo.GetActiveTeacher(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	hash := s.HashToken(voterToken)
	recorded, err := s.repo.CastVote(ctx, &models.RankingVote{CategoryID: categoryID, TeacherID: teacherID, TokenHash: hash})
	if err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record vote")
		}
		recorded = false
	}

	result := &models.RankingVoteResult{Recorded: recorded, AlreadyVoted: !recorded}
	next, err := s.repo.NextCategory(ctx, hash)
	switch {
	case err == nil:
		result.NextCategory = next
	case errors.Is(err, sql.ErrNoRows):
	default:
		s.logger.Warn("load next ranking category failed", zap.Error(err))
	}
	return result, nil
}

// Results lists every category with all candidates, most votes first.
// Percent is relative to the category leader.
func (s *RankingService) Results(ctx context.Context) ([]models.RankingResult, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load categories")
	}
	teachers, err := s.repo.ListTeachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	tallies, err := s.repo.Tallies(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to tally votes")
	}

	votes := make(map[string]map[string]int, len(categories))
	for _, tally := range tallies {
		if votes[tally.CategoryID] == nil {
			votes[tally.CategoryID] = make(map[string]int)
		}
		votes[tally.CategoryID][tally.TeacherID] = tally.Votes
	}

	results := make([]models.RankingResult, 0, len(categories))
	for _, category := range categories {
		counts := votes[category.ID]
		result := models.RankingResult{Category: category, Entries: make([]models.RankingResultItem, 0, len(teachers))}
		maxVotes := 0
		for _, teacher := range teachers {
			n := counts[teacher.ID]
			if !teacher.Active && n == 0 {
				continue
			}
			result.TotalVotes += n
			if n > maxVotes {
				maxVotes = n
			}
			result.Entries = append(result.Entries, models.RankingResultItem{TeacherID: teacher.ID, TeacherName: teacher.Name, Votes: n})
		}
		for i := range result.Entries {
			if maxVotes > 0 {
				result.Entries[i].Percent = math.Round(float64(result.Entries[i].Votes)/float64(maxVotes)*1000) / 10
			}
		}
		entries := result.Entries
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Votes != entries[j].Votes {
				return entries[i].Votes > entries[j].Votes
			}
			return entries[i].TeacherName < entries[j].TeacherName
		})
		results = append(results, result)
	}
	return results, nil
}
