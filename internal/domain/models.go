package domain

import (
	"fmt"
	"strings"
)

// Level partitions questions and teams by age category.
type Level string

const (
	LevelI   Level = "nivel1"
	LevelII  Level = "nivel2"
	LevelIII Level = "nivel3"
)

// Levels lists every recognized level in display order.
var Levels = []Level{LevelI, LevelII, LevelIII}

var levelLabels = map[Level]string{
	LevelI:   "Nivel I",
	LevelII:  "Nivel II",
	LevelIII: "Nivel III",
}

// ParseLevel accepts the storage form ("nivel1"), the display form ("Nivel I") or "L1".
func ParseLevel(raw string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	switch key {
	case "nivel1", "nivel i", "l1", "1":
		return LevelI, nil
	case "nivel2", "nivel ii", "l2", "2":
		return LevelII, nil
	case "nivel3", "nivel iii", "l3", "3":
		return LevelIII, nil
	}
	return "", fmt.Errorf("%w: unknown level %q", ErrInvalidInput, raw)
}

// Valid reports whether l is one of the recognized levels.
func (l Level) Valid() bool {
	_, ok := levelLabels[l]
	return ok
}

// Label returns the display name of the level.
func (l Level) Label() string {
	if label, ok := levelLabels[l]; ok {
		return label
	}
	return string(l)
}

// Question rounds used to partition the pool.
const (
	RoundOctavos = "octavos"
	RoundCuartos = "cuartos"
	RoundSemis   = "semis"
	RoundFinal   = "final"
)

// QuestionRounds lists the accepted round labels.
var QuestionRounds = []string{RoundOctavos, RoundCuartos, RoundSemis, RoundFinal}

// OptionKeys are the four answer keys every question carries.
var OptionKeys = []string{"a", "b", "c", "d"}

// Question is a multiple-choice question whose prompt is an image.
type Question struct {
	ID       string            `json:"id"`
	Level    Level             `json:"level"`
	Round    string            `json:"round,omitempty"`
	ImageRef string            `json:"imageRef,omitempty"`
	Options  map[string]string `json:"options"`
	Correct  string            `json:"correct"`
}

// Option is one answer choice as shown to the operator.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Team is a registered school team with its score counters.
type Team struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Level      Level  `json:"level"`
	Score      int    `json:"score"`
	TotalScore int    `json:"totalScore"`
}
