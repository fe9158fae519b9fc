package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-guard/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-guard/internal/domain/repository"
	domainsvc "github.com/oksasatya/go-auth-guard/internal/domain/service"
	"github.com/oksasatya/go-auth-guard/internal/observability"
	"github.com/oksasatya/go-auth-guard/pkg/helpers"
	"github.com/oksasatya/go-auth-guard/pkg/mailer"
)

const (
	msgEmailError    = "Not valid credentials - email error"
	msgPasswordError = "Not valid credentials - password error"

	defaultMinAge    = 18
	defaultSearchMax = 10
)

// UserCache holds password-stripped projections for the guard path. A fill
// only lands if the version read before the store lookup is still current,
// so Invalidate wins over any lookup already in flight.
type UserCache interface {
	Get(ctx context.Context, id string) (*entity.PublicUser, bool)
	Version(ctx context.Context, id string) (int64, bool)
	SetIfVersion(ctx context.Context, u entity.PublicUser, version int64)
	Invalidate(ctx context.Context, id string)
}

type UserIndex interface {
	IndexUser(ctx context.Context, u entity.PublicUser) error
	SearchUsers(ctx context.Context, q string, size int) ([]entity.PublicUser, error)
}

type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Service orchestrates registration, login and user lookups. Cache, Index,
// Mail and Metrics are optional and may be left nil.
type Service struct {
	Repo    repo.UserRepository
	Hasher  domainsvc.PasswordHasher
	JWT     *helpers.JWTManager
	Logger  *logrus.Logger
	MinAge  int
	AppName string

	Cache   UserCache
	Index   UserIndex
	Mail    JobPublisher
	Metrics *observability.Metrics
}

func NewService(repo repo.UserRepository, hasher domainsvc.PasswordHasher, jwt *helpers.JWTManager, logger *logrus.Logger, minAge int) *Service {
	if minAge <= 0 {
		minAge = defaultMinAge
	}
	return &Service{
		Repo:   repo,
		Hasher: hasher,
		JWT:    jwt,
		Logger: logger,
		MinAge: minAge,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Age      int
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
}

// Credentials are only held for the duration of Login.
type Credentials struct {
	Email    string
	Password string
}

type AuthResponse struct {
	User      entity.PublicUser `json:"user"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Register enforces the age gate, creates the user and issues a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	if in.Age < s.MinAge {
		s.Metrics.RecordOutcome("register", KindPolicyViolation.String())
		return nil, newError(KindPolicyViolation, fmt.Sprintf("must be at least %d years old to register", s.MinAge), nil)
	}

	u, err := s.createUser(ctx, CreateUserInput{Name: in.Name, Email: in.Email, Password: in.Password})
	if err != nil {
		s.Metrics.RecordOutcome("register", KindOf(err).String())
		return nil, err
	}

	resp, err := s.respond(*u)
	if err != nil {
		s.Metrics.RecordOutcome("register", KindInternal.String())
		return nil, err
	}
	s.enqueueWelcome(ctx, *u)
	s.Metrics.RecordOutcome("register", "success")
	return resp, nil
}

// CreateUser hashes the password, persists the user and returns the
// password-stripped projection. Duplicates are detected from the store's
// unique constraint, not checked beforehand.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*entity.PublicUser, error) {
	u, err := s.createUser(ctx, in)
	if err != nil {
		s.Metrics.RecordOutcome("create", KindOf(err).String())
		return nil, err
	}
	s.Metrics.RecordOutcome("create", "success")
	return u, nil
}

func (s *Service) createUser(ctx context.Context, in CreateUserInput) (*entity.PublicUser, error) {
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		s.logError(err, "hash password failed", logrus.Fields{"email": in.Email})
		return nil, internalError(err)
	}

	u := entity.NewUser(in.Name, in.Email, hash)
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, newError(KindDuplicate, fmt.Sprintf("%s already exists", in.Email), err)
		}
		s.logError(err, "create user failed", logrus.Fields{"email": in.Email})
		return nil, internalError(err)
	}

	pub := u.Public()
	s.index(ctx, pub)
	return &pub, nil
}

// Login verifies credentials. Unknown email and wrong password are reported
// with different messages.
func (s *Service) Login(ctx context.Context, cred Credentials) (*AuthResponse, error) {
	u, err := s.Repo.GetByEmail(ctx, cred.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Metrics.RecordOutcome("login", KindUnauthorized.String())
			return nil, newError(KindUnauthorized, msgEmailError, err)
		}
		s.logError(err, "lookup by email failed", logrus.Fields{"email": cred.Email})
		s.Metrics.RecordOutcome("login", KindInternal.String())
		return nil, internalError(err)
	}

	if !s.Hasher.Check(cred.Password, u.Password) {
		s.Metrics.RecordOutcome("login", KindUnauthorized.String())
		return nil, newError(KindUnauthorized, msgPasswordError, nil)
	}

	resp, err := s.respond(u.Public())
	if err != nil {
		s.Metrics.RecordOutcome("login", KindInternal.String())
		return nil, err
	}
	s.Metrics.RecordOutcome("login", "success")
	return resp, nil
}

// CheckToken issues a fresh token for a user the guard already resolved.
func (s *Service) CheckToken(_ context.Context, u entity.PublicUser) (*AuthResponse, error) {
	return s.respond(u)
}

// FindUserByID returns the password-stripped user, consulting the cache first.
func (s *Service) FindUserByID(ctx context.Context, id string) (*entity.PublicUser, error) {
	var (
		version   int64
		cacheable bool
	)
	if s.Cache != nil {
		if u, ok := s.Cache.Get(ctx, id); ok {
			return u, nil
		}
		// read before the store so a concurrent SetActive invalidates this fill
		version, cacheable = s.Cache.Version(ctx, id)
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	pub := u.Public()
	if cacheable {
		s.Cache.SetIfVersion(ctx, pub, version)
	}
	return &pub, nil
}

func (s *Service) FindAll(ctx context.Context) ([]entity.PublicUser, error) {
	users, err := s.Repo.FindAll(ctx)
	if err != nil {
		s.logError(err, "list users failed", nil)
		return nil, internalError(err)
	}
	out := make([]entity.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// SetActive toggles whether the guard admits the user. It is an operator
// action and is not exposed over HTTP.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.Repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, id)
	}
	if u, err := s.Repo.GetByID(ctx, id); err == nil {
		s.index(ctx, u.Public())
	}
	return nil
}

// SearchUsers returns an empty result when no index is configured.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]entity.PublicUser, error) {
	if s.Index == nil {
		return []entity.PublicUser{}, nil
	}
	if size <= 0 || size > 50 {
		size = defaultSearchMax
	}
	users, err := s.Index.SearchUsers(ctx, q, size)
	if err != nil {
		s.logError(err, "search users failed", logrus.Fields{"q": q})
		return nil, internalError(err)
	}
	return users, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.Repo.Ping(ctx)
}

func (s *Service) respond(u entity.PublicUser) (*AuthResponse, error) {
	token, exp, err := s.JWT.Issue(u.ID)
	if err != nil {
		s.logError(err, "issue token failed", logrus.Fields{"user_id": u.ID})
		return nil, internalError(err)
	}
	return &AuthResponse{User: u, Token: token, ExpiresAt: exp}, nil
}

// index is best effort; a failed index never fails the caller.
func (s *Service) index(ctx context.Context, u entity.PublicUser) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexUser(ctx, u); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}

func (s *Service) enqueueWelcome(ctx context.Context, u entity.PublicUser) {
	if s.Mail == nil {
		return
	}
	job := mailer.NewWelcomeJob(s.AppName, u.Name, u.Email)
	if err := s.Mail.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("failed to publish welcome email")
	}
}

func (s *Service) logError(err error, msg string, fields logrus.Fields) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithError(err).WithFields(fields).Error(msg)
}
