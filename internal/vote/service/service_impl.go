package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/dormmenu/internal/audit/domain"
	"github.com/smallbiznis/dormmenu/internal/clock"
	dishdomain "github.com/smallbiznis/dormmenu/internal/dish/domain"
	"github.com/smallbiznis/dormmenu/internal/observability/metrics"
	"github.com/smallbiznis/dormmenu/internal/vote/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Dishes   dishdomain.Service
	DishRepo dishdomain.Repository

	AuditSvc     auditdomain.Service   `optional:"true"`
	Metrics      *metrics.Metrics      `optional:"true"`
	StoreMetrics *metrics.StoreMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	dishes       dishdomain.Service
	dishRepo     dishdomain.Repository
	auditSvc     auditdomain.Service
	metrics      *metrics.Metrics
	storeMetrics *metrics.StoreMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("vote.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		dishes:       p.Dishes,
		dishRepo:     p.DishRepo,
		auditSvc:     p.AuditSvc,
		metrics:      p.Metrics,
		storeMetrics: p.StoreMetrics,
	}
}

func (s *Service) ApplyLike(ctx context.Context, userID, dishName string) (*domain.Result, error) {
	return s.apply(ctx, userID, dishName, domain.VoteLike)
}

func (s *Service) ApplyDislike(ctx context.Context, userID, dishName string) (*domain.Result, error) {
	return s.apply(ctx, userID, dishName, domain.VoteDislike)
}

func (s *Service) apply(ctx context.Context, userID, dishName string, requested domain.VoteType) (*domain.Result, error) {
	userID = strings.TrimSpace(userID)
	if !dishdomain.ValidName(userID) {
		return nil, domain.ErrInvalidUser
	}
	name := dishdomain.NormalizeName(dishName)
	if !dishdomain.ValidName(name) {
		return nil, domain.ErrInvalidDishName
	}

	var (
		result   *domain.Result
		previous *domain.VoteType
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.dishes.WithTx(tx).EnsureExists(ctx, name); err != nil {
			return err
		}

		lockStart := time.Now()
		dish, err := s.dishRepo.FindByNameForUpdate(ctx, tx, name)
		s.storeMetrics.ObserveDBLockWait(metrics.LockResourceDishRow, time.Since(lockStart))
		if err != nil {
			return err
		}
		if dish == nil {
			return domain.ErrDishNotFound
		}

		existing, err := s.repo.FindForUpdate(ctx, tx, userID, dish.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			current := existing.VoteType
			previous = &current
		}

		transition := domain.Apply(previous, requested)
		now := s.clock.Now()

		switch {
		case existing == nil:
			err = s.repo.Insert(ctx, tx, &domain.Vote{
				ID:        s.genID.Generate().Int64(),
				UserID:    userID,
				DishID:    dish.ID,
				VoteType:  requested,
				CreatedAt: now,
				UpdatedAt: now,
			})
		case transition.Next == nil:
			err = s.repo.Delete(ctx, tx, existing.ID)
		default:
			err = s.repo.UpdateType(ctx, tx, existing.ID, *transition.Next, now)
		}
		if err != nil {
			return err
		}

		if err := s.dishRepo.AddCounters(ctx, tx, dish.ID, transition.LikeDelta, transition.DislikeDelta, now); err != nil {
			return err
		}

		refreshed, err := s.dishRepo.FindByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if refreshed == nil {
			return domain.ErrDishNotFound
		}

		result = &domain.Result{
			Dish:     refreshed.Name,
			Likes:    refreshed.LikeCount,
			Dislikes: refreshed.DislikeCount,
			UserVote: transition.Next,
		}
		return nil
	})
	if err != nil {
		s.storeMetrics.IncStoreError("vote.apply", err)
		s.log.Error("failed to apply vote",
			zap.String("dish", name),
			zap.String("vote_type", string(requested)),
			zap.Error(err),
		)
		return nil, err
	}

	s.storeMetrics.IncVoteTransition(voteLabel(previous), voteLabel(result.UserVote))
	s.metrics.RecordVote(ctx, string(requested), voteLabel(result.UserVote))
	return result, nil
}

func (s *Service) GetUserVote(ctx context.Context, userID, dishName string) (*domain.VoteType, error) {
	userID = strings.TrimSpace(userID)
	if !dishdomain.ValidName(userID) {
		return nil, domain.ErrInvalidUser
	}
	name := dishdomain.NormalizeName(dishName)
	if !dishdomain.ValidName(name) {
		return nil, domain.ErrInvalidDishName
	}

	vote, err := s.repo.FindUserVoteByDishName(ctx, s.db, userID, name)
	if err != nil {
		return nil, err
	}
	if vote == nil {
		return nil, nil
	}
	voteType := vote.VoteType
	return &voteType, nil
}

func (s *Service) BulkStats(ctx context.Context, names []string) ([]dishdomain.Stats, error) {
	return s.dishes.BulkStats(ctx, names)
}

func (s *Service) Recount(ctx context.Context, dishName string) (*domain.RecountResult, error) {
	name := dishdomain.NormalizeName(dishName)
	if name == "" {
		return nil, domain.ErrInvalidDishName
	}

	var result *domain.RecountResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dish, err := s.dishRepo.FindByNameForUpdate(ctx, tx, name)
		if err != nil {
			return err
		}
		if dish == nil {
			return domain.ErrDishNotFound
		}

		likes, dislikes, err := s.repo.CountByDish(ctx, tx, dish.ID)
		if err != nil {
			return err
		}

		result = &domain.RecountResult{
			Dish:             dish.Name,
			Likes:            likes,
			Dislikes:         dislikes,
			PreviousLikes:    dish.LikeCount,
			PreviousDislikes: dish.DislikeCount,
		}
		if likes == dish.LikeCount && dislikes == dish.DislikeCount {
			return nil
		}

		result.Repaired = true
		return s.dishRepo.SetCounters(ctx, tx, dish.ID, likes, dislikes, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	if result.Repaired {
		s.log.Warn("dish counters drifted from vote ledger",
			zap.String("dish", result.Dish),
			zap.Int64("previous_likes", result.PreviousLikes),
			zap.Int64("likes", result.Likes),
			zap.Int64("previous_dislikes", result.PreviousDislikes),
			zap.Int64("dislikes", result.Dislikes),
		)
	}
	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionDishRecounted,
			TargetType: auditdomain.TargetTypeDish,
			TargetID:   result.Dish,
			Metadata: map[string]any{
				"repaired":          result.Repaired,
				"previous_likes":    result.PreviousLikes,
				"previous_dislikes": result.PreviousDislikes,
				"likes":             result.Likes,
				"dislikes":          result.Dislikes,
			},
		})
	}
	return result, nil
}

func voteLabel(v *domain.VoteType) string {
	if v == nil {
		return "none"
	}
	return string(*v)
}
