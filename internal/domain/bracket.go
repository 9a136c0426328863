package domain

import "time"

// BracketStatus is the lifecycle state of an elimination bracket.
type BracketStatus string

const (
	BracketNotCreated BracketStatus = "not_created"
	BracketActive     BracketStatus = "active"
	BracketCompleted  BracketStatus = "completed"
)

// Bracket round names.
const (
	RoundQuarterfinals = "quarterfinals"
	RoundSemifinals    = "semifinals"
	RoundFinalMatch    = "final"
)

// Slot is one side of a bracket match: either a concrete team or a placeholder
// waiting for an earlier match's winner.
type Slot struct {
	TeamID      string `json:"teamId,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Ready reports whether the slot holds a concrete team.
func (s Slot) Ready() bool {
	return s.TeamID != ""
}

// BracketMatch is a single head-to-head pairing inside a bracket round.
type BracketMatch struct {
	ID     string `json:"id"`
	Team1  Slot   `json:"team1"`
	Team2  Slot   `json:"team2"`
	Winner string `json:"winner,omitempty"`
}

// Decided reports whether a winner was recorded.
func (m BracketMatch) Decided() bool {
	return m.Winner != ""
}

// BracketRound is one stage of the tournament.
type BracketRound struct {
	Name    string         `json:"name"`
	Matches []BracketMatch `json:"matches"`
}

// Bracket is the single-elimination document for one level.
type Bracket struct {
	ID           string         `json:"id"`
	Level        Level          `json:"level"`
	Status       BracketStatus  `json:"status"`
	CurrentRound string         `json:"currentRound"`
	Rounds       []BracketRound `json:"rounds"`
	Champion     string         `json:"champion,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

// BracketSummary is the read-only projection returned by status queries.
type BracketSummary struct {
	Level        Level         `json:"level"`
	Status       BracketStatus `json:"status"`
	CurrentRound string        `json:"currentRound,omitempty"`
	Champion     string        `json:"champion,omitempty"`
}
