package models

import "time"

// Follow represents a directed edge in the social graph: the user with
// FollowerID follows the user with FollowedID. The composite unique index
// guarantees a pair exists at most once; self-pairs are rejected by the
// handlers before a row is ever written.
type Follow struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	FollowerID string    `json:"follower_id" gorm:"type:varchar(36);index;uniqueIndex:idx_follower_followed"`
	FollowedID string    `json:"followed_id" gorm:"type:varchar(36);index;uniqueIndex:idx_follower_followed"`
	CreatedAt  time.Time `json:"created_at"`
}
