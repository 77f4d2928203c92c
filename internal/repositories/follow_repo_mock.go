package repositories

import (
	"sort"
	"sync"
	"time"

	"mozicblog/internal/models"
)

// MockFollowRepository is an in-memory implementation of FollowRepository.
type MockFollowRepository struct {
	mu    sync.RWMutex
	edges map[[2]string]time.Time // (follower, followed) -> creation time
	users map[string]models.User  // known users, for the listing joins
	seq   int64                   // monotonic tiebreaker for creation order
}

// NewMockFollowRepository creates a new instance of MockFollowRepository.
func NewMockFollowRepository() *MockFollowRepository {
	return &MockFollowRepository{
		edges: make(map[[2]string]time.Time),
		users: make(map[string]models.User),
	}
}

// AddUser registers a user so Followers/Followings can resolve them.
func (r *MockFollowRepository) AddUser(user models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

// IsFollowing reports whether the ordered pair exists.
func (r *MockFollowRepository) IsFollowing(followerID, followedID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.edges[[2]string{followerID, followedID}]
	return ok, nil
}

// Follow records the edge; following an already-followed user is a no-op.
func (r *MockFollowRepository) Follow(followerID, followedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]string{followerID, followedID}
	if _, ok := r.edges[key]; ok {
		return nil
	}
	r.seq++
	r.edges[key] = time.Now().Add(time.Duration(r.seq)) // strictly increasing
	return nil
}

// Unfollow removes the edge; removing an absent edge is a no-op.
func (r *MockFollowRepository) Unfollow(followerID, followedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.edges, [2]string{followerID, followedID})
	return nil
}

// Followers returns the users following userID, newest follow first.
func (r *MockFollowRepository) Followers(userID string, page, perPage int) ([]models.User, int64, error) {
	return r.page(userID, page, perPage, false)
}

// Followings returns the users userID follows, newest follow first.
func (r *MockFollowRepository) Followings(userID string, page, perPage int) ([]models.User, int64, error) {
	return r.page(userID, page, perPage, true)
}

func (r *MockFollowRepository) page(userID string, page, perPage int, outgoing bool) ([]models.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type hit struct {
		id string
		at time.Time
	}
	var hits []hit
	for key, at := range r.edges {
		if outgoing && key[0] == userID {
			hits = append(hits, hit{key[1], at})
		} else if !outgoing && key[1] == userID {
			hits = append(hits, hit{key[0], at})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].at.After(hits[j].at) })

	total := int64(len(hits))
	start := (page - 1) * perPage
	if start >= len(hits) {
		return []models.User{}, total, nil
	}
	end := start + perPage
	if end > len(hits) {
		end = len(hits)
	}

	users := make([]models.User, 0, end-start)
	for _, h := range hits[start:end] {
		users = append(users, r.users[h.id])
	}
	return users, total, nil
}
