package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/dormmenu/internal/clock"
	"github.com/smallbiznis/dormmenu/internal/dish/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dish.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) WithTx(tx *gorm.DB) domain.Service {
	clone := *s
	clone.db = tx
	return &clone
}

func (s *Service) EnsureExists(ctx context.Context, name string) error {
	name = domain.NormalizeName(name)
	if !domain.ValidName(name) {
		return domain.ErrInvalidName
	}
	return s.EnsureMany(ctx, []string{name})
}

func (s *Service) EnsureMany(ctx context.Context, names []string) error {
	unique := domain.UniqueNames(names)
	if len(unique) == 0 {
		return nil
	}
	for _, name := range unique {
		if !domain.ValidName(name) {
			return domain.ErrInvalidName
		}
	}

	now := s.clock.Now()
	dishes := make([]*domain.Dish, 0, len(unique))
	for _, name := range unique {
		id := s.genID.Generate().Int64()
		dishes = append(dishes, &domain.Dish{
			ID:        id,
			Name:      name,
			Slug:      dishSlug(name, id),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.repo.InsertIgnore(ctx, s.db, dishes); err != nil {
		s.log.Error("failed to ensure dishes", zap.Int("count", len(dishes)), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) FindByName(ctx context.Context, name string) (*domain.Response, error) {
	name = domain.NormalizeName(name)
	if !domain.ValidName(name) {
		return nil, domain.ErrInvalidName
	}

	item, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) BulkStats(ctx context.Context, names []string) ([]domain.Stats, error) {
	items, err := s.repo.FindByNames(ctx, s.db, domain.UniqueNames(names))
	if err != nil {
		return nil, err
	}

	byName := make(map[string]domain.Dish, len(items))
	for _, item := range items {
		byName[item.Name] = item
	}

	stats := make([]domain.Stats, 0, len(names))
	for _, raw := range names {
		name := domain.NormalizeName(raw)
		entry := domain.Stats{Name: name}
		if item, ok := byName[name]; ok {
			entry.Likes = item.LikeCount
			entry.Dislikes = item.DislikeCount
		}
		stats = append(stats, entry)
	}
	return stats, nil
}

func (s *Service) MissingNames(ctx context.Context, names []string) ([]string, error) {
	unique := domain.UniqueNames(names)
	if len(unique) == 0 {
		return []string{}, nil
	}

	items, err := s.repo.FindByNames(ctx, s.db, unique)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(items))
	for _, item := range items {
		existing[item.Name] = struct{}{}
	}

	missing := make([]string, 0, len(unique))
	for _, name := range unique {
		if _, ok := existing[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListRequest{
		Query:  strings.TrimSpace(req.Query),
		SortBy: strings.ToLower(strings.TrimSpace(req.SortBy)),
		Limit:  req.Limit,
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func dishSlug(name string, id int64) string {
	if v := slug.Make(name); v != "" {
		if len(v) > domain.MaxNameLength {
			v = strings.TrimRight(v[:domain.MaxNameLength], "-")
		}
		return v
	}
	return strconv.FormatInt(id, 10)
}

func toResponse(d *domain.Dish) domain.Response {
	return domain.Response{
		ID:        strconv.FormatInt(d.ID, 10),
		Name:      d.Name,
		Slug:      d.Slug,
		Likes:     d.LikeCount,
		Dislikes:  d.DislikeCount,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
