package service

import (
	"context"
	"errors"
	"strings"

	"socialgraph/internal/cascade"
	"socialgraph/internal/models"
	"socialgraph/internal/store"
)

// UserService owns user mutations.
type UserService struct {
	e *engine
}

type CreateUserInput struct {
	Name     string
	Password string
	Email    string
}

// UpdateUserInput carries the fields to change; nil fields are left alone.
type UpdateUserInput struct {
	Name     *string
	Password *string
	Email    *string
}

// CreateUser inserts a user with empty reference sets. The password is
// stored in its encoded form.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("name, email and password are required")
	}

	user := &models.User{
		ID:       models.NewID(),
		Name:     in.Name,
		Password: models.EncodePassword(in.Password),
		Email:    in.Email,
	}
	user.EnsureSets()

	m := &mutation{
		name: "createUser",
		kind: store.KindUser,
		id:   user.ID,
		plan: func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			if err := emailAvailable(ctx, g.Backend, in.Email, ""); err != nil {
				return cascade.Plan{}, err
			}
			return cascade.Plan{Operation: "createUser"}, nil
		},
		primary: func(ctx context.Context, b store.Backend) error {
			if _, err := b.Users().InsertOne(ctx, user); err != nil {
				return primaryError("createUser", "User", user.ID, err)
			}
			return nil
		},
	}
	if _, err := s.e.run(ctx, m); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser changes the supplied fields. An email already owned by a
// different user is a conflict; keeping one's own email is not.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	set := map[string]string{}
	if in.Name != nil {
		set[models.FieldName] = *in.Name
	}
	if in.Password != nil {
		set[models.FieldPassword] = models.EncodePassword(*in.Password)
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, models.NewValidationError("email must not be empty")
		}
		set[models.FieldEmail] = email
	}

	var updated *models.User
	m := &mutation{
		name: "updateUser",
		kind: store.KindUser,
		id:   id,
		plan: func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			if email, ok := set[models.FieldEmail]; ok {
				if err := emailAvailable(ctx, g.Backend, email, id); err != nil {
					return cascade.Plan{}, err
				}
			}
			return cascade.Plan{Operation: "updateUser"}, nil
		},
		primary: func(ctx context.Context, b store.Backend) error {
			var err error
			if len(set) == 0 {
				updated, err = mustExist(ctx, b.Users(), "User", id)
				return err
			}
			updated, err = b.Users().FindOneAndUpdate(ctx, store.ByID(id), store.SetFields(set), store.After)
			if err != nil {
				return primaryError("updateUser", "User", id, err)
			}
			return nil
		},
	}
	if _, err := s.e.run(ctx, m); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes the user with its posts, comments and likes. A missing
// user is not an error: the sweep still runs and Report.Deleted is false.
func (s *UserService) DeleteUser(ctx context.Context, id string) (*cascade.Report, error) {
	m := &mutation{
		name:    "deleteUser",
		kind:    store.KindUser,
		id:      id,
		removes: true,
		plan: func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			snap, err := g.User(ctx, id)
			if err != nil {
				return cascade.Plan{}, err
			}
			return cascade.PlanDeleteUser(snap), nil
		},
	}
	m.primary = deletePrimary(m, func(b store.Backend) store.Writer { return b.Users() })
	return s.e.run(ctx, m)
}

func deletePrimary(m *mutation, coll func(store.Backend) store.Writer) func(context.Context, store.Backend) error {
	return func(ctx context.Context, b store.Backend) error {
		n, err := coll(b).DeleteOne(ctx, store.ByID(m.id))
		if err != nil {
			return models.NewWriteRejectedError(m.name+" write rejected", err)
		}
		m.deleted = n > 0
		return nil
	}
}

// emailAvailable fails with a conflict when email belongs to a user other
// than self.
func emailAvailable(ctx context.Context, b store.Backend, email, self string) error {
	owner, err := b.Users().FindOne(ctx, store.Where(models.FieldEmail, email))
	if errors.Is(err, store.ErrNoDocument) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner.ID != self {
		return models.NewConflictError("email already in use")
	}
	return nil
}
