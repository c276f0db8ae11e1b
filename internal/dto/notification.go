package dto

import "github.com/abel-mek/school-roster-api/internal/models"

// NotificationFeedResponse is the merged, deduplicated feed for one user.
// The unseen count is derived from the same filtered list the client
// renders, so badge and list can never disagree.
type NotificationFeedResponse struct {
	Items       []models.NotificationItem `json:"items"`
	UnseenCount int                       `json:"unseen_count"`
}
