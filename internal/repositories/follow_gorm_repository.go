package repositories

import (
	"fmt"

	"mozicblog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMFollowRepository is a GORM implementation of FollowRepository.
type GORMFollowRepository struct {
	db *gorm.DB
}

// NewGORMFollowRepository creates a new instance of GORMFollowRepository.
func NewGORMFollowRepository(db *gorm.DB) *GORMFollowRepository {
	return &GORMFollowRepository{
		db: db,
	}
}

// IsFollowing reports whether a follow row exists for the exact ordered pair.
func (r *GORMFollowRepository) IsFollowing(followerID, followedID string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check follow state: %w", err)
	}
	return count > 0, nil
}

// Follow inserts the relation row if it does not already exist. The insert
// rides on the composite unique index with ON CONFLICT DO NOTHING, so the
// duplicate case is handled inside a single statement rather than with a
// separate existence check that could race a concurrent request.
func (r *GORMFollowRepository) Follow(followerID, followedID string) error {
	follow := models.Follow{
		FollowerID: followerID,
		FollowedID: followedID,
	}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&follow).Error; err != nil {
		return fmt.Errorf("failed to follow user %s: %w", followedID, err)
	}
	return nil
}

// Unfollow deletes the relation row if present. Deleting a missing pair
// affects zero rows and is not an error.
func (r *GORMFollowRepository) Unfollow(followerID, followedID string) error {
	if err := r.db.
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{}).Error; err != nil {
		return fmt.Errorf("failed to unfollow user %s: %w", followedID, err)
	}
	return nil
}

// Followers returns one page of the users following userID, newest follow
// first, plus the total follower count.
func (r *GORMFollowRepository) Followers(userID string, page, perPage int) ([]models.User, int64, error) {
	return r.pageOfUsers("follower_id", "followed_id", userID, page, perPage)
}

// Followings returns one page of the users userID follows, newest follow
// first, plus the total count.
func (r *GORMFollowRepository) Followings(userID string, page, perPage int) ([]models.User, int64, error) {
	return r.pageOfUsers("followed_id", "follower_id", userID, page, perPage)
}

// pageOfUsers selects the users on the selectSide of the follow edges whose
// matchSide equals userID, ordered by when the follow was created. Both
// column names are fixed identifiers, never user input.
func (r *GORMFollowRepository) pageOfUsers(selectSide, matchSide, userID string, page, perPage int) ([]models.User, int64, error) {
	// Session makes the chain reusable for both the count and the page query
	base := r.db.Model(&models.User{}).
		Joins("JOIN follows ON follows."+selectSide+" = users.id").
		Where("follows."+matchSide+" = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count follow listing: %w", err)
	}

	var users []models.User
	if err := base.Order("follows.created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list follow users: %w", err)
	}
	return users, total, nil
}
