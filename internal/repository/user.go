package repository

import (
	"context"
	"strings"

	"civicboard/internal/cache"
	"civicboard/internal/database"
	"civicboard/internal/models"
	"civicboard/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Summaries(ctx context.Context, ids []uint) (map[uint]*models.UserSummary, error)
	Create(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation. c may be nil.
func NewUserRepository(db *gorm.DB, c *cache.Cache) UserRepository {
	return &userRepository{db: db, cache: c, log: observability.NewRepoLogger("users")}
}

// GetByID returns nil, nil when the user does not exist.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		return r.db.WithContext(ctx).First(&user, id).Error
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("find user", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("find user", err)
	}
	return &user, nil
}

// Summaries returns the public projection of each existing user in ids.
func (r *userRepository) Summaries(ctx context.Context, ids []uint) (map[uint]*models.UserSummary, error) {
	out, err := loadUserSummaries(ctx, r.db, uniqueIDs(ids))
	if err != nil {
		return nil, storageError("load users", err)
	}
	return out, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewConflictError("email already registered")
		}
		r.log.LogError(ctx, err, "create")
		return storageError("create user", err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": user.ID})
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, storageError("count users", err)
	}
	return n, nil
}
