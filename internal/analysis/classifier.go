// Package analysis classifies drone imagery into coarse field conditions.
// The shipped classifier is a simulated model; the Classifier interface is the
// seam where a real one plugs in without touching the poll loop.
package analysis

import (
	"math/rand"
	"sync"
	"time"
)

// Classifier derives a field-condition label and a confidence score from raw
// image bytes.
type Classifier interface {
	Classify(image []byte) (status string, confidence float64)
}

// Field condition labels, best to worst.
const (
	StatusExcellent = "excellent"
	StatusGood      = "good"
	StatusFair      = "fair"
	StatusPoor      = "poor"
	StatusCritical  = "critical"
)

var labels = []string{StatusExcellent, StatusGood, StatusFair, StatusPoor, StatusCritical}

var (
	// Daylight imagery reads better, so daytime draws favor the upper labels.
	dayWeights   = []float64{0.4, 0.4, 0.15, 0.04, 0.01}
	nightWeights = []float64{0.2, 0.3, 0.3, 0.15, 0.05}
)

// FieldClassifier is the heuristic stand-in for a real model: a weighted
// random draw whose weights shift with the hour of day, with a confidence
// correlated to the label drawn.
type FieldClassifier struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewFieldClassifier() *FieldClassifier {
	return &FieldClassifier{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

func (c *FieldClassifier) Classify(image []byte) (string, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	weights := nightWeights
	if hour := c.now().Hour(); hour >= 6 && hour <= 18 {
		weights = dayWeights
	}

	status := labels[c.draw(weights)]

	var confidence float64
	switch status {
	case StatusExcellent, StatusGood:
		confidence = 0.7 + c.rng.Float64()*0.25
	default:
		confidence = 0.6 + c.rng.Float64()*0.2
	}

	return status, confidence
}

// draw picks an index by cumulative weight.
func (c *FieldClassifier) draw(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}

	r := c.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}
