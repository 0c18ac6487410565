// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"

	"saaskit/config"
	deliverycontext "saaskit/internal/delivery/context"
	"saaskit/internal/domain/entity"
	domainerrors "saaskit/internal/domain/errors"
	"saaskit/internal/domain/repository"
	"saaskit/internal/domain/service"
	"saaskit/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// userService implements the UserUsecase interface.
type userService struct {
	txManager   repository.TransactionManager
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	hasher      service.PasswordHasher
	sessions    usecase.SessionUsecase
	logger      *slog.Logger
}

// UserServiceParams holds dependencies for userService, injected by Fx.
type UserServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	UserRepo    repository.UserRepository
	AccountRepo repository.AccountRepository
	Hasher      service.PasswordHasher
	Sessions    usecase.SessionUsecase
	Config      *config.Config
	Logger      *slog.Logger
}

// NewUserService is the constructor for userService. It receives all dependencies as interfaces.
func NewUserService(params UserServiceParams) usecase.UserUsecase {
	return &userService{
		txManager:   params.TxManager,
		userRepo:    params.UserRepo,
		accountRepo: params.AccountRepo,
		hasher:      params.Hasher,
		sessions:    params.Sessions,
		logger:      params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *userService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Signup registers a new user with credentials authentication and logs them
// straight in. The user and account rows commit in one transaction; session
// creation runs after the commit, and its failure does not undo the signup.
func (srv *userService) Signup(ctx context.Context, input *usecase.SignupInput, rc service.RequestContext) (*usecase.SignupOutput, error) {
	srv.log(ctx).Info("Starting signup", slog.String("email", input.Email))

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during signup", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, "failed to hash password during signup")
	}

	newUser := &entity.User{
		ID:        uuid.New(),
		Email:     input.Email,
		Username:  input.Username,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      entity.RoleUser,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		accountRepo := repoFactory.AccountRepo()

		_, err := accountRepo.FindAccount(ctx, entity.ProviderCredentials, input.Email)
		if err == nil {
			return errors.Wrap(domainerrors.ErrUserAlreadyExists, "email already registered")
		}
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return errors.Wrap(err, "failed to check existing account")
		}

		if err := userRepo.Create(ctx, newUser); err != nil {
			return errors.Wrap(err, "failed to create user during signup")
		}

		newAccount := &entity.Account{
			ID:                uuid.New(),
			UserID:            newUser.ID,
			Provider:          entity.ProviderCredentials,
			ProviderAccountID: input.Email,
			HashedPassword:    hashedPassword,
		}
		if err := accountRepo.CreateAccount(ctx, newAccount); err != nil {
			return errors.Wrap(err, "failed to create account during signup")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to execute signup transaction", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute signup transaction")
	}

	output := &usecase.SignupOutput{User: newUser}

	// The account now exists either way; a session failure only means the
	// client has to log in explicitly.
	handle, err := srv.sessions.CreateSession(ctx, newUser, rc)
	if err != nil {
		srv.log(ctx).Warn("Signup succeeded but session creation failed", slog.Any("user_id", newUser.ID), slog.Any("error", err))

		return output, nil
	}
	output.Session = handle

	srv.log(ctx).Debug("Signup completed", slog.Any("user_id", newUser.ID))

	return output, nil
}

// Login verifies credentials and starts a new session.
func (srv *userService) Login(ctx context.Context, input *usecase.LoginInput, rc service.RequestContext) (*usecase.LoginOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.String("email", input.Email))

	account, err := srv.loadLoginAccount(ctx, input.Email)
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, err
	}

	// Check password outside transaction (bcrypt is CPU-bound).
	if !srv.hasher.Check(input.Password, account.HashedPassword) {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", domainerrors.ErrInvalidCredentials))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	loggedInUser, err := srv.loadLoginUser(ctx, account.UserID)
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to load login user from primary")
	}

	handle, err := srv.sessions.CreateSession(ctx, loggedInUser, rc)
	if err != nil {
		srv.log(ctx).Error("Failed to create session during login", slog.Any("user_id", loggedInUser.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to create session during login")
	}

	srv.log(ctx).Debug("User logged in successfully", slog.Any("user_id", loggedInUser.ID))

	return &usecase.LoginOutput{
		User:    loggedInUser,
		Session: handle,
	}, nil
}

func (srv *userService) loadLoginAccount(ctx context.Context, email string) (*entity.Account, error) {
	var account *entity.Account

	// Load the credentials account from primary in a short transaction to avoid stale reads on replicas.
	if err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.AccountRepo()

		var findErr error
		account, findErr = accountRepo.FindAccount(ctx, entity.ProviderCredentials, email)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrAccountNotFound) {
				return errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
			}

			return errors.Wrap(findErr, "failed to find account")
		}

		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "failed to execute login account transaction")
	}

	return account, nil
}

func (srv *userService) loadLoginUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	var loggedInUser *entity.User

	if err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		var findErr error
		loggedInUser, findErr = userRepo.FindByID(ctx, userID)
		if findErr != nil {
			return errors.Wrap(findErr, "failed to find user by id")
		}

		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "failed to execute login user transaction")
	}

	return loggedInUser, nil
}

// Logout ends the request's session and clears the cookie. A store failure is
// logged and swallowed: the cookie is already gone, so from the client's side
// logout has succeeded either way, and the sweeper removes the orphaned row at
// expiry.
func (srv *userService) Logout(ctx context.Context, rc service.RequestContext) error {
	srv.log(ctx).Info("Attempting to log out")

	if err := srv.sessions.RevokeCurrentSession(ctx, rc); err != nil {
		srv.log(ctx).Warn("Failed to revoke session during logout", slog.Any("error", err))

		return nil
	}
	srv.log(ctx).Info("Successfully logged out")

	return nil
}

// GetUser retrieves a user by ID.
func (srv *userService) GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "user not found")
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	return user, nil
}
