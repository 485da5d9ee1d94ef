package model

import "time"

// StatusConfirmed is the only progress state a plant can reach.
const StatusConfirmed = "confirmed"

type Plant struct {
	ID          string   `json:"id"`
	Difficulty  int      `json:"difficulty"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Photos      []string `json:"photos"`
}

// Catalog maps plant id to its entry.
type Catalog map[string]Plant

type UserProgress struct {
	UserID    string               `json:"user_id"`
	Email     string               `json:"email"`
	Progress  map[string]string    `json:"progress"`
	Confirmed map[string]time.Time `json:"confirmed_at,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// ProgressPatch is merged into a user document; it never replaces it.
type ProgressPatch struct {
	Email  string
	ItemID string
	Status string
	At     time.Time
}

type PendingItem struct {
	ItemID string `json:"item_id"`
	Photo  string `json:"photo"`
}

type Classification struct {
	PredictedLabel string  `json:"predicted_label"`
	Confidence     float64 `json:"confidence"`
	Match          bool    `json:"match"`
}

// MinConfidence is the inclusive confidence a classification needs to confirm a plant.
const MinConfidence = 80

func (c Classification) Accepted() bool {
	return c.Confidence >= MinConfidence && c.Match
}

type CaptureState string

const (
	CaptureIdle          CaptureState = "idle"
	CaptureAwaitingFile  CaptureState = "awaiting_file"
	CaptureOfflineQueued CaptureState = "offline_queued"
	CaptureSubmitting    CaptureState = "submitting"
	CaptureConfirmed     CaptureState = "confirmed"
	CaptureRejected      CaptureState = "rejected"
	CaptureError         CaptureState = "error"
)

type Milestone struct {
	Level   int    `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type PlantCard struct {
	Plant
	Status string `json:"status"`
}

type ProgressView struct {
	UserID       string      `json:"user_id,omitempty"`
	Level        int         `json:"level"`
	Title        string      `json:"title"`
	Confirmed    int         `json:"confirmed"`
	Visible      int         `json:"visible"`
	Percent      int         `json:"percent"`
	TotalSeen    int         `json:"total_seen"`
	NextLevelAt  int         `json:"next_level_at,omitempty"`
	Cards        []PlantCard `json:"cards"`
	PendingCount int         `json:"pending_count"`
	Online       bool        `json:"online"`
	GeneratedAt  time.Time   `json:"generated_at"`
}
