// Package verdict turns a raw AI-generation probability into the user-facing result.
package verdict

import (
	"fmt"
	"math"
)

// Label buckets.
const (
	LabelLow    = "baja"
	LabelMedium = "media"
	LabelHigh   = "alta"
)

// Tier lower bounds (inclusive).
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.5
)

// Disclaimer is attached to every verdict.
const Disclaimer = "Este resultado es una estimación probabilística y no una prueba definitiva."

var messages = map[string]string{
	LabelHigh:   "Alta probabilidad de que la imagen haya sido generada por IA.",
	LabelMedium: "Probabilidad media de generación por IA. Recomendamos revisar el contexto y la fuente.",
	LabelLow:    "Baja probabilidad de generación por IA. No es una prueba concluyente.",
}

type Verdict struct {
	Score      float64
	Percentage int
	Label      string
	Message    string
	Disclaimer string
}

// Valid reports whether score is a finite probability.
func Valid(score float64) bool {
	return !math.IsNaN(score) && !math.IsInf(score, 0) && score >= 0 && score <= 1
}

// Label returns the bucket for score.
func Label(score float64) string {
	switch {
	case score >= HighThreshold:
		return LabelHigh
	case score >= MediumThreshold:
		return LabelMedium
	default:
		return LabelLow
	}
}

// Normalize builds a Verdict. Callers must pass a score accepted by Valid.
func Normalize(score float64) (Verdict, error) {
	if !Valid(score) {
		return Verdict{}, fmt.Errorf("score out of range: %v", score)
	}
	label := Label(score)
	return Verdict{
		Score:      score,
		Percentage: int(math.Round(score * 100)),
		Label:      label,
		Message:    messages[label],
		Disclaimer: Disclaimer,
	}, nil
}
