// Package domain contains core domain types for the CodeEdge tutor backend.
package domain

import (
	"strings"
	"time"
)

// Difficulty is a problem difficulty level.
type Difficulty string

// Supported difficulties.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every difficulty from easiest to hardest.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty normalizes s and reports whether it names a known difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Valid()
}

// ProgressRecord tracks how many problems a user solved per difficulty and
// which difficulty they should be served next.
type ProgressRecord struct {
	UserID            string     `json:"user_id"`
	EasySolved        int        `json:"easy_solved"`
	MediumSolved      int        `json:"medium_solved"`
	HardSolved        int        `json:"hard_solved"`
	CurrentDifficulty Difficulty `json:"current_difficulty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewProgressRecord returns the zero-progress record every user starts with.
func NewProgressRecord(userID string) *ProgressRecord {
	return &ProgressRecord{
		UserID:            userID,
		CurrentDifficulty: DifficultyEasy,
	}
}

// Increment bumps the counter matching d. Unknown difficulties are ignored
// and reported as false.
func (p *ProgressRecord) Increment(d Difficulty) bool {
	switch d {
	case DifficultyEasy:
		p.EasySolved++
	case DifficultyMedium:
		p.MediumSolved++
	case DifficultyHard:
		p.HardSolved++
	default:
		return false
	}
	return true
}

// Clone returns a copy that shares no state with p.
func (p *ProgressRecord) Clone() *ProgressRecord {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
