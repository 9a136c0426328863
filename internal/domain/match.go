package domain

import "time"

// TieMarker is reported as the winner when the top score is shared.
const TieMarker = "Empate"

// MatchState is the ephemeral state of one quiz round between two teams.
// It lives in the session store from Initialize until Clear.
type MatchState struct {
	ID             string         `json:"id"`
	Level          Level          `json:"level"`
	Round          string         `json:"round,omitempty"`
	TeamA          string         `json:"teamA"`
	TeamB          string         `json:"teamB"`
	QuestionIDs    []string       `json:"questionIds"`
	Index          int            `json:"index"`
	Scores         map[string]int `json:"scores"`
	ScoreThreshold int            `json:"scoreThreshold,omitempty"`
	Current        *Question      `json:"current,omitempty"`
	StartedAt      *time.Time     `json:"startedAt,omitempty"`
	Deadline       *time.Time     `json:"deadline,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Teams returns the two participants in the order they were given.
func (m MatchState) Teams() []string {
	return []string{m.TeamA, m.TeamB}
}

// HasTeam reports whether name is one of the match participants.
func (m MatchState) HasTeam(name string) bool {
	_, ok := m.Scores[name]
	return ok
}

// ThresholdReached reports whether score-threshold termination applies.
func (m MatchState) ThresholdReached() bool {
	if m.ScoreThreshold <= 0 {
		return false
	}
	for _, score := range m.Scores {
		if score >= m.ScoreThreshold {
			return true
		}
	}
	return false
}

// Finished reports whether the question list is exhausted or the threshold was hit.
func (m MatchState) Finished() bool {
	return m.Index >= len(m.QuestionIDs) || m.ThresholdReached()
}

// PresentedQuestion is the current question as shown to the operator, without the correct key.
type PresentedQuestion struct {
	ID        string     `json:"id"`
	Level     Level      `json:"level"`
	Round     string     `json:"round,omitempty"`
	ImageRef  string     `json:"imageRef,omitempty"`
	Options   []Option   `json:"options"`
	Number    int        `json:"number"`
	Total     int        `json:"total"`
	StartedAt time.Time  `json:"startedAt"`
	Deadline  *time.Time `json:"deadline,omitempty"`
}

// Standing is one row of a match result.
type Standing struct {
	Team  string `json:"team"`
	Score int    `json:"score"`
}

// MatchResult summarizes a match. Winner is TieMarker when the top score is shared.
type MatchResult struct {
	Scores    map[string]int `json:"scores"`
	Standings []Standing     `json:"standings"`
	Winner    string         `json:"winner"`
	Tied      []string       `json:"tied,omitempty"`
	Message   string         `json:"message"`
	Finished  bool           `json:"finished"`
}
