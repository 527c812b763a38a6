// Package types contains common types used across the application
package types

import "time"

// Summary describes a finished or running judging session
type Summary struct {
	SessionID     string         `json:"session_id"`
	ChartHash     string         `json:"chart_hash"`
	Mode          string         `json:"mode"`
	Score         float64        `json:"score"`
	Aces          int            `json:"aces"`
	Perfect       bool           `json:"perfect"`
	BonusAchieved bool           `json:"bonus_achieved"`
	Resolved      int            `json:"resolved"`
	Actions       int            `json:"actions"`
	Timings       map[string]int `json:"timings"`
	StartedAt     time.Time      `json:"started_at"`
	Duration      time.Duration  `json:"duration"`
}

// Complete reports whether every action of the chart was resolved.
func (s Summary) Complete() bool {
	return s.Actions > 0 && s.Resolved == s.Actions
}

// Count returns how many edges were graded with the named timing.
func (s Summary) Count(timing string) int {
	return s.Timings[timing]
}
