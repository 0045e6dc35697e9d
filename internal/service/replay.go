package service

import (
	"context"

	"socialgraph/internal/cascade"
	"socialgraph/internal/models"
	"socialgraph/internal/store"
)

// ReplayService re-runs the delete sweep for a document that is already
// gone, removing any references a failed cascade left behind.
type ReplayService struct {
	e *engine
}

// ReplayDelete repairs the references to the deleted document kind/id. It
// refuses to touch a document that still exists.
func (s *ReplayService) ReplayDelete(ctx context.Context, kind store.Kind, id string) (*cascade.Report, error) {
	var resource string
	var plan func(context.Context, cascade.Gatherer) (cascade.Plan, error)
	switch kind {
	case store.KindUser:
		resource = "User"
		plan = func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			snap, err := g.User(ctx, id)
			if err != nil {
				return cascade.Plan{}, err
			}
			if snap.User != nil {
				return cascade.Plan{}, stillExists(resource, id)
			}
			return cascade.PlanDeleteUser(snap), nil
		}
	case store.KindPost:
		resource = "Post"
		plan = func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			snap, err := g.Post(ctx, id)
			if err != nil {
				return cascade.Plan{}, err
			}
			if snap.Post != nil {
				return cascade.Plan{}, stillExists(resource, id)
			}
			return cascade.PlanDeletePost(snap), nil
		}
	case store.KindComment:
		resource = "Comment"
		plan = func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			snap, err := g.Comment(ctx, id)
			if err != nil {
				return cascade.Plan{}, err
			}
			if snap.Comment != nil {
				return cascade.Plan{}, stillExists(resource, id)
			}
			return cascade.PlanDeleteComment(snap), nil
		}
	default:
		return nil, models.NewValidationError("unknown collection " + string(kind))
	}

	m := &mutation{
		name:    "replay",
		kind:    kind,
		id:      id,
		removes: true,
		plan:    plan,
		primary: func(context.Context, store.Backend) error { return nil },
	}
	return s.e.run(ctx, m)
}

func stillExists(resource, id string) error {
	return models.NewConflictError(resource + " " + id + " still exists; delete it instead of replaying")
}
