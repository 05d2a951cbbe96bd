package models

import (
	"time"
)

// Dashboard represents a dashboard as stored by the backend API
type Dashboard struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	ReportIDs   []int64           `json:"report_ids"`
	Layout      []DashboardTile   `json:"layout,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	IsFavorite  bool              `json:"is_favorite"`
	IsPublic    bool              `json:"is_public"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CreatedBy   string            `json:"created_by,omitempty"`
	Settings    DashboardSettings `json:"settings"`
}

// DashboardTile places a report query on the dashboard grid. The grid
// itself is rendered and persisted by the UI.
type DashboardTile struct {
	ReportID int64  `json:"report_id"`
	QueryID  string `json:"query_id,omitempty"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// DashboardSettings represents dashboard-wide settings
type DashboardSettings struct {
	RefreshInterval int    `json:"refresh_interval"` // seconds
	Theme           string `json:"theme,omitempty"`  // light, dark
}

// ReportSummary is the list view of a report
type ReportSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WebSocketMessage is the envelope pushed to connected UIs
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Action  string      `json:"action,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Scopes  []string    `json:"scopes,omitempty"`
}
