package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/geo"
	"github.com/geocoder89/userhub/internal/security"
)

// Small consumer-side interfaces so tests can fake the collaborators.

type UserStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	DeleteByEmail(ctx context.Context, email string) error
	List(ctx context.Context) ([]user.User, error)
	Count(ctx context.Context) (int64, error)
}

type GeoResolver interface {
	CallerAddress(ctx context.Context) (string, error)
	Lookup(ctx context.Context, addr string) (geo.Location, error)
}

type ListCache interface {
	GetList(ctx context.Context) ([]user.PublicView, bool)
	SetList(ctx context.Context, views []user.PublicView)
	Invalidate(ctx context.Context)
}

type Service struct {
	store UserStore
	geo   GeoResolver
	cache ListCache // may be nil
	log   *slog.Logger
}

func NewService(store UserStore, geoResolver GeoResolver, cache ListCache, log *slog.Logger) *Service {
	return &Service{
		store: store,
		geo:   geoResolver,
		cache: cache,
		log:   log,
	}
}

type RegisterRequest struct {
	Name     string
	Email    string
	Gender   user.Gender
	Password string
}

// Register creates a user. Order is fixed: the advisory uniqueness check
// runs before hashing or any geolocation call, so duplicate requests never
// reach the external providers. The store's unique index remains the
// authoritative race-breaker and its conflict surfaces as the same
// user.ErrEmailTaken.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (user.PublicView, error) {
	exists, err := s.store.ExistsByEmail(ctx, req.Email)

	if err != nil {
		return user.PublicView{}, err
	}

	if exists {
		s.log.Warn("registration rejected, email taken", "email", req.Email)
		return user.PublicView{}, user.ErrEmailTaken
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		return user.PublicView{}, err
	}

	// Best-effort enrichment: both lookups degrade to "Unknown" and never
	// abort the registration.
	addr, _ := s.geo.CallerAddress(ctx)
	loc, _ := s.geo.Lookup(ctx, addr)

	u, err := s.store.Create(ctx, user.User{
		Name:         req.Name,
		Email:        req.Email,
		Gender:       req.Gender,
		PasswordHash: hash,
		IPAddress:    addr,
		Country:      loc.Country,
		Role:         user.RoleUser, // callers cannot request ADMIN
	})

	if err != nil {
		return user.PublicView{}, err
	}

	s.invalidateList(ctx)

	s.log.Info("user registered", "id", u.ID, "email", u.Email, "country", u.Country)

	return u.Public(), nil
}

// ValidateCredentials reports whether email+password identify a stored
// user. A missing user and a wrong password are indistinguishable to the
// caller.
func (s *Service) ValidateCredentials(ctx context.Context, email, password string) (bool, error) {
	u, err := s.store.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	return security.CheckPassword(u.PasswordHash, password), nil
}

// ListAll returns public views in store order, through the list cache when
// one is configured.
func (s *Service) ListAll(ctx context.Context) ([]user.PublicView, error) {
	if s.cache != nil {
		if views, ok := s.cache.GetList(ctx); ok {
			return views, nil
		}
	}

	users, err := s.store.List(ctx)

	if err != nil {
		return nil, err
	}

	views := make([]user.PublicView, 0, len(users))

	for _, u := range users {
		views = append(views, u.Public())
	}

	if s.cache != nil {
		s.cache.SetList(ctx, views)
	}

	return views, nil
}

// DeleteByEmail returns true only when a record was actually removed, so
// deleting twice in sequence reports true then false.
func (s *Service) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	err := s.store.DeleteByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	s.invalidateList(ctx)

	s.log.Info("user deleted", "email", email)

	return true, nil
}

func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.store.ExistsByEmail(ctx, email)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// CallerIP surfaces the address lookup. The degraded value is still
// returned alongside the error so the boundary can decide how to report.
func (s *Service) CallerIP(ctx context.Context) (string, error) {
	return s.geo.CallerAddress(ctx)
}

func (s *Service) LocationByIP(ctx context.Context, addr string) (geo.Location, error) {
	return s.geo.Lookup(ctx, addr)
}

// CallerLocation resolves the caller's address and then its location.
func (s *Service) CallerLocation(ctx context.Context) (geo.Location, error) {
	addr, err := s.geo.CallerAddress(ctx)

	if err != nil {
		return geo.Location{IP: addr, Country: geo.Unknown}, err
	}

	return s.geo.Lookup(ctx, addr)
}

func (s *Service) invalidateList(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
