package postgres

import (
	"context"
	"time"

	"saaskit/internal/domain/entity"
	"saaskit/internal/domain/repository"
	"saaskit/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// subscriptionRepository implements the read-only domain.SubscriptionRepository.
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository is the constructor for subscriptionRepository.
func NewSubscriptionRepository(db *gorm.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// FindActiveByUserID retrieves the user's currently usable subscription.
// Only active or trialing rows with an unexpired period qualify.
func (repo *subscriptionRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*entity.Subscription, error) {
	var subscriptionM model.SubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND status IN ? AND current_period_end > ?",
			userID,
			[]string{string(entity.SubscriptionActive), string(entity.SubscriptionTrialing)},
			time.Now(),
		).
		Order("current_period_end DESC").
		First(&subscriptionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSubscriptionNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toSubscriptionDomain(&subscriptionM), nil
}

// --- Mapper Functions ---

// toSubscriptionDomain converts a GORM SubscriptionModel to a domain Subscription entity.
func toSubscriptionDomain(data *model.SubscriptionModel) *entity.Subscription {
	if data == nil {
		return nil
	}

	return &entity.Subscription{
		ID:               data.ID,
		UserID:           data.UserID,
		Plan:             data.Plan,
		Status:           entity.SubscriptionStatus(data.Status),
		Entitlements:     data.Entitlements,
		CurrentPeriodEnd: data.CurrentPeriodEnd,
		CreatedAt:        data.CreatedAt,
		UpdatedAt:        data.UpdatedAt,
	}
}
