package parley_test

import (
	"testing"

	"github.com/fwojciec/parley"
	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	t.Parallel()
	vision := parley.ModelDescriptor{ID: "gpt-4-vision-preview", InputPricePer1K: 0.01, OutputPricePer1K: 0.03, SupportsVision: true}

	t.Run("text only", func(t *testing.T) {
		t.Parallel()
		m := parley.ModelDescriptor{ID: "gpt-4", InputPricePer1K: 0.03, OutputPricePer1K: 0.06}
		c := parley.Estimate(m, 1000, 500, 3, parley.ImageDetailLow)
		assert.InDelta(t, 0.03, c.InputCost, 1e-9)
		assert.InDelta(t, 0.03, c.OutputCost, 1e-9)
		assert.Zero(t, c.Images, "non-vision models do not pay for images")
		assert.InDelta(t, 0.06, c.TotalCost(), 1e-9)
		assert.Equal(t, 1500, c.TotalTokens())
	})

	t.Run("low detail images", func(t *testing.T) {
		t.Parallel()
		c := parley.Estimate(vision, 0, 0, 2, parley.ImageDetailLow)
		assert.InDelta(t, 2*0.00085, c.VisionCost, 1e-9)
	})

	t.Run("high detail images", func(t *testing.T) {
		t.Parallel()
		c := parley.Estimate(vision, 1000, 0, 1, parley.ImageDetailHigh)
		assert.InDelta(t, 0.00765, c.VisionCost, 1e-9)
		assert.InDelta(t, 0.01+0.00765, c.TotalCost(), 1e-9)
	})
}
