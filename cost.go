package parley

// LowDetailImageCost is the flat price of one low-detail image.
const LowDetailImageCost = 0.00085

// highDetailImageTokens is the token equivalent of one 1024x1024 image at
// high detail: four 512px tiles plus the base charge.
const highDetailImageTokens = 170*4 + 85

// ImageCost returns the estimated price of one image sent to model.
func ImageCost(model ModelDescriptor, detail ImageDetail) float64 {
	if detail == ImageDetailHigh {
		return float64(highDetailImageTokens) / 1000 * model.InputPricePer1K
	}
	return LowDetailImageCost
}

// CostEstimate is the projected token usage and price of a request.
type CostEstimate struct {
	InputTokens  int
	OutputTokens int
	Images       int

	InputCost  float64
	OutputCost float64
	VisionCost float64
}

// TotalTokens returns input plus output tokens.
func (c CostEstimate) TotalTokens() int { return c.InputTokens + c.OutputTokens }

// TotalCost returns the combined price.
func (c CostEstimate) TotalCost() float64 { return c.InputCost + c.OutputCost + c.VisionCost }

// Estimate prices a request of inputTokens prompt tokens, outputTokens
// completion tokens, and images image segments. Vision cost is charged only
// for vision-capable models.
func Estimate(model ModelDescriptor, inputTokens, outputTokens, images int, detail ImageDetail) CostEstimate {
	c := CostEstimate{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		InputCost:    model.InputPricePer1K * float64(inputTokens) / 1000,
		OutputCost:   model.OutputPricePer1K * float64(outputTokens) / 1000,
	}
	if model.SupportsVision {
		c.Images = images
		c.VisionCost = ImageCost(model, detail) * float64(images)
	}
	return c
}
