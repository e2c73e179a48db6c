package models

import "time"

// Follow is a directed edge from FollowerID to FollowingID. There is at most
// one edge per ordered pair and none from a user to themself.
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"followerId" gorm:"not null;uniqueIndex:idx_follow_edge,priority:1;check:chk_follow_not_self,follower_id <> following_id"`
	FollowingID uint      `json:"followingId" gorm:"not null;uniqueIndex:idx_follow_edge,priority:2;index"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FollowCounts heads a user page.
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}
