package dto

import (
	"drivetime-accessibility/internal/render"
	"time"
)

type LongestRouteResponse struct {
	AreaID             string  `json:"area_id"`
	Population         int     `json:"population"`
	Minutes            float64 `json:"minutes"`
	DestinationID      string  `json:"destination_id"`
	DestinationName    string  `json:"destination_name"`
	StraightLineMeters float64 `json:"straight_line_meters"`
	HasPath            bool    `json:"has_path"`
}

type SummaryResponse struct {
	RunID           string                `json:"run_id"`
	StartedAt       time.Time             `json:"started_at"`
	FinishedAt      time.Time             `json:"finished_at"`
	Areas           int                   `json:"areas"`
	Destinations    int                   `json:"destinations"`
	TotalPopulation int                   `json:"total_population"`
	Failed          int                   `json:"failed"`
	Unreachable     int                   `json:"unreachable"`
	Buckets         []render.SummaryRow   `json:"buckets"`
	Longest         *LongestRouteResponse `json:"longest,omitempty"`
}
