package workflow

import (
	"context"
	"errors"

	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/credentials"
	"github.com/dalemusser/weblivery/internal/app/system/inputval"
	"github.com/dalemusser/weblivery/internal/app/system/normalize"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RegisterInput describes a new identity.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

func validateIdentity(in RegisterInput) error {
	v := errs.NewValidationError()
	if in.Email == "" {
		v.Add("email", "is required")
	} else if !inputval.IsValidEmail(in.Email) {
		v.Add("email", "is not a valid email address")
	}
	if len(in.Password) < credentials.MinPasswordLen {
		v.Add("password", "is too short")
	}
	if in.Name == "" {
		v.Add("name", "is required")
	} else if !inputval.MaxLen(in.Name, MaxNameLen) {
		v.Add("name", "is too long")
	}
	if !inputval.MaxLen(in.Nickname, MaxNameLen) {
		v.Add("nickname", "is too long")
	}
	if !models.IsValidRole(in.Role) {
		v.Add("role", `must be "admin" or "developer"`)
	}
	return v.OrNil()
}

func (in RegisterInput) clean() RegisterInput {
	in.Email = normalize.Email(in.Email)
	in.Name = normalize.Name(in.Name)
	in.Nickname = normalize.Name(in.Nickname)
	in.Role = normalize.Role(in.Role)
	if in.Role == "" {
		in.Role = models.RoleDeveloper
	}
	return in
}

func (e *Engine) createIdentity(ctx context.Context, in RegisterInput) (models.User, error) {
	hash, err := credentials.Hash(in.Password)
	if err != nil {
		return models.User{}, err
	}
	return e.identities.Create(ctx, models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Nickname:     in.Nickname,
		Role:         in.Role,
	})
}

// RegisterIdentity creates an identity with a password. Only
// administrators may register identities; a taken email returns
// errs.ErrDuplicate.
func (e *Engine) RegisterIdentity(ctx context.Context, actor auth.Identity, in RegisterInput) (models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return models.User{}, err
	}
	in = in.clean()
	if err := validateIdentity(in); err != nil {
		return models.User{}, err
	}
	u, err := e.createIdentity(ctx, in)
	if err != nil {
		return models.User{}, err
	}

	e.audit.IdentityRegistered(ctx, actor.ID(), u)
	e.log.Info("identity registered",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", u.Role),
		zap.String("actor", actor.Email()))
	return u, nil
}

// ListIdentities returns every identity, the roster an administrator
// assigns developers from.
func (e *Engine) ListIdentities(ctx context.Context, actor auth.Identity) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return e.identities.List(ctx)
}

// UpdateIdentityInput edits an identity. An empty Password keeps the
// current one.
type UpdateIdentityInput struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// UpdateIdentity changes an identity's display fields and optionally its
// password. Projects keep the developer snapshots taken at assignment.
func (e *Engine) UpdateIdentity(ctx context.Context, actor auth.Identity, id primitive.ObjectID, in UpdateIdentityInput) (models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return models.User{}, err
	}
	in.Name = normalize.Name(in.Name)
	in.Nickname = normalize.Name(in.Nickname)

	v := errs.NewValidationError()
	if in.Name == "" {
		v.Add("name", "is required")
	} else if !inputval.MaxLen(in.Name, MaxNameLen) {
		v.Add("name", "is too long")
	}
	if !inputval.MaxLen(in.Nickname, MaxNameLen) {
		v.Add("nickname", "is too long")
	}
	if in.Password != "" && len(in.Password) < credentials.MinPasswordLen {
		v.Add("password", "is too short")
	}
	if err := v.OrNil(); err != nil {
		return models.User{}, err
	}

	if err := e.identities.UpdateProfile(ctx, id, models.ProfileUpdate{Name: in.Name, Nickname: in.Nickname}); err != nil {
		return models.User{}, err
	}
	if in.Password != "" {
		hash, err := credentials.Hash(in.Password)
		if err != nil {
			return models.User{}, err
		}
		if err := e.identities.SetPassword(ctx, id, hash); err != nil {
			return models.User{}, err
		}
	}

	e.audit.IdentityUpdated(ctx, actor.ID(), id, in.Password != "")
	u, err := e.identities.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return *u, nil
}

// AdminSeed is the administrator created at startup.
type AdminSeed struct {
	Email    string
	Password string
	Name     string
	Nickname string
}

// EnsureAdmin creates the seed administrator unless an identity with that
// email already exists. An existing identity is left untouched, so the call
// is idempotent. It reports whether an identity was created.
func (e *Engine) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	in := RegisterInput{
		Email:    seed.Email,
		Password: seed.Password,
		Name:     seed.Name,
		Nickname: seed.Nickname,
		Role:     models.RoleAdmin,
	}.clean()
	if in.Name == "" {
		in.Name = "Administrator"
	}

	if _, err := e.identities.GetByEmail(ctx, in.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return false, err
	}

	if err := validateIdentity(in); err != nil {
		return false, err
	}
	u, err := e.createIdentity(ctx, in)
	if err != nil {
		// Another instance seeded it first.
		if errors.Is(err, errs.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}

	e.audit.IdentityRegistered(ctx, primitive.NilObjectID, u)
	e.log.Info("seed administrator created", zap.String("email", u.Email))
	return true, nil
}
