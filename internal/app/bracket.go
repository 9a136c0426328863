package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

// BracketSize is the number of entrants of an elimination bracket.
const BracketSize = 8

type slotTarget struct {
	round int
	match int
	slot  int // 1 = team1, 2 = team2
}

// advanceTable maps a decided match to the next-round slot its winner occupies.
// The final has no entry: its winner is the champion.
var advanceTable = map[string]slotTarget{
	"qf_1": {round: 1, match: 0, slot: 1},
	"qf_2": {round: 1, match: 0, slot: 2},
	"qf_3": {round: 1, match: 1, slot: 1},
	"qf_4": {round: 1, match: 1, slot: 2},
	"sf_1": {round: 2, match: 0, slot: 1},
	"sf_2": {round: 2, match: 0, slot: 2},
}

var bracketLayout = []struct {
	name    string
	matches []string
}{
	{name: domain.RoundQuarterfinals, matches: []string{"qf_1", "qf_2", "qf_3", "qf_4"}},
	{name: domain.RoundSemifinals, matches: []string{"sf_1", "sf_2"}},
	{name: domain.RoundFinalMatch, matches: []string{"f_1"}},
}

// NewBracket lays out the three rounds with quarterfinals filled from teamIDs in order
// and later rounds holding placeholders.
func NewBracket(id string, level domain.Level, teamIDs []string, now time.Time) domain.Bracket {
	b := domain.Bracket{
		ID:           id,
		Level:        level,
		Status:       domain.BracketActive,
		CurrentRound: domain.RoundQuarterfinals,
		CreatedAt:    now,
	}
	for _, layout := range bracketLayout {
		round := domain.BracketRound{Name: layout.name}
		for _, matchID := range layout.matches {
			round.Matches = append(round.Matches, domain.BracketMatch{ID: matchID})
		}
		b.Rounds = append(b.Rounds, round)
	}

	for i := range b.Rounds[0].Matches {
		b.Rounds[0].Matches[i].Team1 = domain.Slot{TeamID: teamIDs[2*i]}
		b.Rounds[0].Matches[i].Team2 = domain.Slot{TeamID: teamIDs[2*i+1]}
	}
	for source, target := range advanceTable {
		*slotAt(&b, target) = domain.Slot{Placeholder: placeholderFor(source)}
	}
	return b
}

// applyWinner records winner for matchID and moves it into the next-round slot.
// It returns the index of the round the match belongs to and whether anything changed.
func applyWinner(b *domain.Bracket, matchID, winner string, now time.Time) (int, bool, error) {
	ri, mi, ok := locateMatch(*b, matchID)
	if !ok {
		return 0, false, fmt.Errorf("bracket match %q: %w", matchID, domain.ErrNotFound)
	}
	match := &b.Rounds[ri].Matches[mi]
	if !match.Team1.Ready() || !match.Team2.Ready() {
		return ri, false, fmt.Errorf("%w: %s is waiting for %s", domain.ErrSlotNotReady, matchID, pendingLabel(*match))
	}
	if winner != match.Team1.TeamID && winner != match.Team2.TeamID {
		return ri, false, invalidf("team %q does not play in %s", winner, matchID)
	}

	target, hasNext := advanceTable[matchID]
	if match.Decided() {
		if match.Winner == winner {
			return ri, false, nil
		}
		if !hasNext {
			return ri, false, invalidf("the final is already decided")
		}
		if next := b.Rounds[target.round].Matches[target.match]; next.Decided() {
			return ri, false, invalidf("%s already fed a decided match", matchID)
		}
	}

	match.Winner = winner
	if hasNext {
		*slotAt(b, target) = domain.Slot{TeamID: winner}
	} else {
		b.Status = domain.BracketCompleted
		b.Champion = winner
		b.CompletedAt = &now
	}
	b.CurrentRound = currentRound(*b)
	return ri, true, nil
}

// currentRound is the first round with an undecided match, or the last round once all are decided.
func currentRound(b domain.Bracket) string {
	for _, round := range b.Rounds {
		for _, m := range round.Matches {
			if !m.Decided() {
				return round.Name
			}
		}
	}
	if len(b.Rounds) == 0 {
		return ""
	}
	return b.Rounds[len(b.Rounds)-1].Name
}

func locateMatch(b domain.Bracket, matchID string) (int, int, bool) {
	for ri, round := range b.Rounds {
		for mi, m := range round.Matches {
			if m.ID == matchID {
				return ri, mi, true
			}
		}
	}
	return 0, 0, false
}

func slotAt(b *domain.Bracket, t slotTarget) *domain.Slot {
	m := &b.Rounds[t.round].Matches[t.match]
	if t.slot == 1 {
		return &m.Team1
	}
	return &m.Team2
}

func placeholderFor(matchID string) string {
	return "Ganador " + strings.ToUpper(strings.ReplaceAll(matchID, "_", ""))
}

func pendingLabel(m domain.BracketMatch) string {
	var pending []string
	for _, s := range []domain.Slot{m.Team1, m.Team2} {
		if !s.Ready() {
			pending = append(pending, s.Placeholder)
		}
	}
	return strings.Join(pending, ", ")
}
