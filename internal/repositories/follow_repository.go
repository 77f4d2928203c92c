package repositories

import "mozicblog/internal/models"

// FollowRepository defines the interface for the follow graph.
//
// Follow and Unfollow are idempotent toggles: each pair of users is either
// FOLLOWING or NOT_FOLLOWING, repeating an operation in the same state is a
// no-op, and both are single atomic writes so two concurrent requests for the
// same pair can never produce a duplicate row or a constraint error.
type FollowRepository interface {
	IsFollowing(followerID, followedID string) (bool, error)
	Follow(followerID, followedID string) error
	Unfollow(followerID, followedID string) error
	Followers(userID string, page, perPage int) ([]models.User, int64, error)
	Followings(userID string, page, perPage int) ([]models.User, int64, error)
}
