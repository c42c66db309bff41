package catalog

import (
	"fmt"

	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/fatflowers/entitlement/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/fx"
)

// Service serves the immutable plan and post type definitions loaded at
// startup. Every accessor returns copies.
type Service struct {
	postTypes   []types.PostType
	postTypeIdx map[string]types.PostType
	plans       []types.PackagePlan
	planIdx     map[string]types.PackagePlan
	trialPlanID string
}

func NewService(cfg *config.Config) (*Service, error) {
	return New(cfg.Catalog)
}

// New validates c and builds the catalog.
func New(c config.CatalogConfig) (*Service, error) {
	v := validator.New()
	s := &Service{
		postTypeIdx: make(map[string]types.PostType, len(c.PostTypes)),
		planIdx:     make(map[string]types.PackagePlan, len(c.Plans)),
		trialPlanID: c.TrialPlanID,
	}
	for i, pt := range c.PostTypes {
		if err := v.Struct(pt); err != nil {
			return nil, fmt.Errorf("invalid post type #%d: %w", i, err)
		}
		if _, dup := s.postTypeIdx[pt.ID]; dup {
			return nil, fmt.Errorf("duplicate post type id %q", pt.ID)
		}
		s.postTypeIdx[pt.ID] = pt
		s.postTypes = append(s.postTypes, pt)
	}
	types.SortPostTypes(s.postTypes)

	for i, p := range c.Plans {
		if err := v.Struct(p); err != nil {
			return nil, fmt.Errorf("invalid plan #%d: %w", i, err)
		}
		if _, dup := s.planIdx[p.ID]; dup {
			return nil, fmt.Errorf("duplicate plan id %q", p.ID)
		}
		seen := make(map[string]struct{}, len(p.Limits))
		for _, l := range p.Limits {
			if _, ok := s.postTypeIdx[l.PostTypeID]; !ok {
				return nil, fmt.Errorf("plan %q references unknown post type %q", p.ID, l.PostTypeID)
			}
			if _, dup := seen[l.PostTypeID]; dup {
				return nil, fmt.Errorf("plan %q lists post type %q twice", p.ID, l.PostTypeID)
			}
			seen[l.PostTypeID] = struct{}{}
		}
		p.Limits = append([]types.PostTypeLimit(nil), p.Limits...)
		s.planIdx[p.ID] = p
		s.plans = append(s.plans, p)
	}
	if s.trialPlanID != "" {
		if _, ok := s.planIdx[s.trialPlanID]; !ok {
			return nil, fmt.Errorf("trial plan %q is not defined", s.trialPlanID)
		}
	}
	return s, nil
}

func (s *Service) PostType(id string) (types.PostType, error) {
	pt, ok := s.postTypeIdx[id]
	if !ok {
		return types.PostType{}, apperr.Validation("post_type_id", "unknown post type %q", id)
	}
	return pt, nil
}

// PostTypes returns all post types ordered by priority.
func (s *Service) PostTypes() []types.PostType {
	return append([]types.PostType(nil), s.postTypes...)
}

func (s *Service) Plan(id string) (types.PackagePlan, error) {
	p, ok := s.planIdx[id]
	if !ok {
		return types.PackagePlan{}, apperr.Validation("plan_id", "unknown plan %q", id)
	}
	p.Limits = append([]types.PostTypeLimit(nil), p.Limits...)
	return p, nil
}

func (s *Service) Plans() []types.PackagePlan {
	return lo.Map(s.plans, func(p types.PackagePlan, _ int) types.PackagePlan {
		p.Limits = append([]types.PostTypeLimit(nil), p.Limits...)
		return p
	})
}

func (s *Service) TrialPlan() (types.PackagePlan, error) {
	if s.trialPlanID == "" {
		return types.PackagePlan{}, apperr.Validation("trial_plan_id", "no trial plan configured")
	}
	return s.Plan(s.trialPlanID)
}

// Snapshot copies plan id together with the display metadata of its post
// types. The result shares no memory with the catalog.
func (s *Service) Snapshot(planID string) (*types.PlanSnapshot, error) {
	p, err := s.Plan(planID)
	if err != nil {
		return nil, err
	}
	snap := &types.PlanSnapshot{
		PlanID:        p.ID,
		Name:          p.Name,
		DisplayName:   p.DisplayName,
		Price:         p.Price,
		Currency:      p.Currency,
		Duration:      p.Duration,
		FreePushCount: p.FreePushCount,
		Limits:        make([]types.SnapshotLimit, 0, len(p.Limits)),
	}
	for _, l := range p.Limits {
		pt := s.postTypeIdx[l.PostTypeID]
		snap.Limits = append(snap.Limits, types.SnapshotLimit{
			PostTypeID:  pt.ID,
			DisplayName: pt.DisplayName,
			Priority:    pt.Priority,
			Color:       pt.Color,
			StarRating:  pt.StarRating,
			Limit:       l.Limit,
		})
	}
	return snap, nil
}

// LowestPriorityPostType is the remap target for listings whose post type
// is missing from snap.
func (s *Service) LowestPriorityPostType(snap *types.PlanSnapshot) (types.SnapshotLimit, error) {
	target, ok := snap.LowestPriority()
	if !ok {
		return types.SnapshotLimit{}, apperr.Validation("plan_id", "plan has no post types")
	}
	return target, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
