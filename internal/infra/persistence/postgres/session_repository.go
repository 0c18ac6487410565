package postgres

import (
	"context"
	"time"

	"saaskit/internal/domain/entity"
	domainerrors "saaskit/internal/domain/errors"
	"saaskit/internal/domain/repository"
	"saaskit/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// sessionRepository implements the domain.SessionRepository interface.
// Liveness is always evaluated against the instant supplied by the caller so
// the service layer keeps full control of the clock.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// CreateSession persists a new session row.
func (repo *sessionRepository) CreateSession(ctx context.Context, session *entity.Session) error {
	sessionM := fromSessionDomain(session)

	if err := repo.db.WithContext(ctx).Create(sessionM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrSessionCreationFailed.WrapMessage("session token collision")
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrSessionCreationFailed.WrapMessage("invalid user reference")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrSessionCreationFailed.WrapMessage("missing required session information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create session")
	}

	session.CreatedAt = sessionM.CreatedAt
	session.UpdatedAt = sessionM.UpdatedAt

	return nil
}

// FindSessionByID retrieves a session by its unique ID regardless of expiry.
func (repo *sessionRepository) FindSessionByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	var sessionM model.SessionModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sessionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toSessionDomain(&sessionM), nil
}

// FindLiveSession retrieves the session matching id AND owner with expiry
// after now. Owner mismatch and expiry both collapse into ErrSessionNotFound.
func (repo *sessionRepository) FindLiveSession(ctx context.Context, id, userID uuid.UUID, now time.Time) (*entity.Session, error) {
	var sessionM model.SessionModel

	if err := repo.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND expires_at > ?", id, userID, now).
		First(&sessionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toSessionDomain(&sessionM), nil
}

// FindSessionByToken retrieves a session by its opaque bearer token.
func (repo *sessionRepository) FindSessionByToken(ctx context.Context, token string) (*entity.Session, error) {
	var sessionM model.SessionModel

	if err := repo.db.WithContext(ctx).
		Where("token = ?", token).
		First(&sessionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toSessionDomain(&sessionM), nil
}

// FindLiveSessionsByUserID retrieves all live sessions for a user, newest
// activity first.
func (repo *sessionRepository) FindLiveSessionsByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*entity.Session, error) {
	var sessionModels []*model.SessionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("updated_at DESC").
		Find(&sessionModels).Error; err != nil {
		return nil, errors.WithStack(err)
	}

	sessions := make([]*entity.Session, 0, len(sessionModels))
	for _, sessionM := range sessionModels {
		sessions = append(sessions, toSessionDomain(sessionM))
	}

	return sessions, nil
}

// FindOldestLiveSessions retrieves up to limit live sessions for a user
// ordered by creation time ascending, for capacity eviction.
func (repo *sessionRepository) FindOldestLiveSessions(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*entity.Session, error) {
	var sessionModels []*model.SessionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&sessionModels).Error; err != nil {
		return nil, errors.WithStack(err)
	}

	sessions := make([]*entity.Session, 0, len(sessionModels))
	for _, sessionM := range sessionModels {
		sessions = append(sessions, toSessionDomain(sessionM))
	}

	return sessions, nil
}

// ExtendSession moves a session's expiry forward and records the refresh
// instant. The expires_at guard keeps expiry monotonic under concurrency.
func (repo *sessionRepository) ExtendSession(ctx context.Context, id uuid.UUID, expiresAt, now time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("id = ? AND expires_at < ?", id, expiresAt).
		Updates(map[string]any{
			"expires_at": expiresAt,
			"updated_at": now,
		})
	if result.Error != nil {
		return errors.WithStack(result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// TouchSession records last-seen activity metadata on a session row.
func (repo *sessionRepository) TouchSession(ctx context.Context, id uuid.UUID, userAgent, ipAddress string, now time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"user_agent": userAgent,
			"ip_address": ipAddress,
			"updated_at": now,
		})
	if result.Error != nil {
		return errors.WithStack(result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// DeleteSession removes a session by its ID, ending it permanently.
func (repo *sessionRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.SessionModel{})
	if result.Error != nil {
		return errors.WithStack(result.Error)
	}

	// If no rows were affected, it means the session was not found.
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// DeleteSessionsByUserID removes all sessions for a user.
func (repo *sessionRepository) DeleteSessionsByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.SessionModel{})
	if result.Error != nil {
		return 0, errors.WithStack(result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteOtherSessions removes all of a user's sessions except exceptID.
func (repo *sessionRepository) DeleteOtherSessions(ctx context.Context, userID, exceptID uuid.UUID) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("user_id = ? AND id <> ?", userID, exceptID).
		Delete(&model.SessionModel{})
	if result.Error != nil {
		return 0, errors.WithStack(result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteExpiredSessions removes every session with expiry at or before now.
func (repo *sessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&model.SessionModel{})
	if result.Error != nil {
		return 0, errors.WithStack(result.Error)
	}

	return result.RowsAffected, nil
}

// CountLiveSessionsByUserID returns the number of live sessions for a user.
func (repo *sessionRepository) CountLiveSessionsByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var count int64

	if err := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Count(&count).Error; err != nil {
		return 0, errors.WithStack(err)
	}

	return int(count), nil
}

// --- Mapper Functions ---

// toSessionDomain converts a GORM SessionModel to a domain Session entity.
func toSessionDomain(data *model.SessionModel) *entity.Session {
	if data == nil {
		return nil
	}

	return &entity.Session{
		ID:        data.ID,
		Token:     data.Token,
		UserID:    data.UserID,
		UserAgent: data.UserAgent,
		IPAddress: data.IPAddress,
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

// fromSessionDomain converts a domain Session entity to a GORM SessionModel.
func fromSessionDomain(data *entity.Session) *model.SessionModel {
	if data == nil {
		return nil
	}

	return &model.SessionModel{
		ID:        data.ID,
		Token:     data.Token,
		UserID:    data.UserID,
		UserAgent: data.UserAgent,
		IPAddress: data.IPAddress,
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}
