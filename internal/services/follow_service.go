package services

import (
	"mozicblog/internal/models"
	"mozicblog/internal/repositories"
)

// FollowService handles the follow graph between users. The repository's
// operations are already atomic idempotent toggles, so the service stays
// thin; the no-self-follow rule is enforced by the handlers, which redirect
// instead of erroring.
type FollowService struct {
	followRepo repositories.FollowRepository
}

// NewFollowService creates a new FollowService.
func NewFollowService(followRepo repositories.FollowRepository) *FollowService {
	return &FollowService{
		followRepo: followRepo,
	}
}

// IsFollowing reports whether follower currently follows followed.
func (s *FollowService) IsFollowing(followerID, followedID string) (bool, error) {
	return s.followRepo.IsFollowing(followerID, followedID)
}

// Follow establishes the relation. Calling it again for the same pair is a
// no-op.
func (s *FollowService) Follow(followerID, followedID string) error {
	return s.followRepo.Follow(followerID, followedID)
}

// Unfollow removes the relation. Calling it when not following is a no-op.
func (s *FollowService) Unfollow(followerID, followedID string) error {
	return s.followRepo.Unfollow(followerID, followedID)
}

// Followers lists the users following userID, newest first.
func (s *FollowService) Followers(userID string, page, perPage int) ([]models.User, int64, error) {
	return s.followRepo.Followers(userID, page, perPage)
}

// Followings lists the users userID follows, newest first.
func (s *FollowService) Followings(userID string, page, perPage int) ([]models.User, int64, error) {
	return s.followRepo.Followings(userID, page, perPage)
}
