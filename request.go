package parley

// Request carries model selection and generation parameters.
// The provider uses its own defaults when fields are zero/nil.
type Request struct {
	Model string

	// System is the out-of-band system text extracted during adaptation.
	// Nil means system messages travel inline in Messages.
	System *string

	Messages    []AdaptedMessage
	MaxTokens   int      // 0 = provider default
	Temperature *float64 // nil = provider default
}
