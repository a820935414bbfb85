package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBounds(t *testing.T) {
	c := NewFieldClassifier()

	valid := map[string]bool{
		StatusExcellent: true,
		StatusGood:      true,
		StatusFair:      true,
		StatusPoor:      true,
		StatusCritical:  true,
	}

	for i := 0; i < 500; i++ {
		status, confidence := c.Classify([]byte("jpeg bytes"))
		require.True(t, valid[status], "unexpected label %q", status)
		assert.GreaterOrEqual(t, confidence, 0.6)
		assert.LessOrEqual(t, confidence, 0.95)
	}
}

func TestClassifyConfidenceTracksLabel(t *testing.T) {
	c := NewFieldClassifier()

	for i := 0; i < 500; i++ {
		status, confidence := c.Classify(nil)
		switch status {
		case StatusExcellent, StatusGood:
			assert.GreaterOrEqual(t, confidence, 0.7)
		default:
			assert.LessOrEqual(t, confidence, 0.8)
		}
	}
}

func TestClassifyDaytimeFavorsGoodLabels(t *testing.T) {
	c := NewFieldClassifier()
	c.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	counts := map[string]int{}
	const n = 2000
	for i := 0; i < n; i++ {
		status, _ := c.Classify(nil)
		counts[status]++
	}

	// Day weights put 80% of the mass on excellent+good.
	assert.Greater(t, counts[StatusExcellent]+counts[StatusGood], n/2)
}
