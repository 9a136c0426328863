package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the tournament counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	matchesStarted *prometheus.CounterVec
	pointsAwarded  *prometheus.CounterVec
	deckReshuffles *prometheus.CounterVec
	bracketWinners *prometheus.CounterVec
	champions      *prometheus.CounterVec
}

// NewMetrics registers the counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		matchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "olimpiadas",
			Name:      "matches_started_total",
			Help:      "Quiz rounds initialized.",
		}, []string{"level"}),
		pointsAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "olimpiadas",
			Name:      "points_awarded_total",
			Help:      "Points assigned to teams during quiz rounds.",
		}, []string{"level"}),
		deckReshuffles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "olimpiadas",
			Name:      "deck_reshuffles_total",
			Help:      "Times the used-question ledger was cleared to fill a match.",
		}, []string{"level"}),
		bracketWinners: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "olimpiadas",
			Name:      "bracket_winners_total",
			Help:      "Bracket match winners recorded.",
		}, []string{"level", "round"}),
		champions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "olimpiadas",
			Name:      "champions_total",
			Help:      "Brackets completed with a champion.",
		}, []string{"level"}),
	}
	reg.MustRegister(m.matchesStarted, m.pointsAwarded, m.deckReshuffles, m.bracketWinners, m.champions)
	return m
}

func (m *Metrics) matchStarted(level string) {
	if m == nil {
		return
	}
	m.matchesStarted.WithLabelValues(level).Inc()
}

func (m *Metrics) pointsAssigned(level string, points int) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsAwarded.WithLabelValues(level).Add(float64(points))
}

func (m *Metrics) reshuffled(level string) {
	if m == nil {
		return
	}
	m.deckReshuffles.WithLabelValues(level).Inc()
}

func (m *Metrics) winnerRecorded(level, round string) {
	if m == nil {
		return
	}
	m.bracketWinners.WithLabelValues(level, round).Inc()
}

func (m *Metrics) championCrowned(level string) {
	if m == nil {
		return
	}
	m.champions.WithLabelValues(level).Inc()
}
