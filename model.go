package parley

// ProviderKind selects the wire protocol and adaptation rules for a model.
type ProviderKind int

const (
	ProviderOpenAICompatible ProviderKind = iota
	ProviderAnthropic
	ProviderGoogle
)

func (p ProviderKind) String() string {
	switch p {
	case ProviderOpenAICompatible:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderGoogle:
		return "google"
	default:
		return "unknown"
	}
}

// ImageDetail is the resolution hint sent with image URL segments.
type ImageDetail string

const (
	ImageDetailLow  ImageDetail = "low"
	ImageDetailHigh ImageDetail = "high"
)

// IsValid reports whether d is a recognised detail level.
func (d ImageDetail) IsValid() bool {
	return d == ImageDetailLow || d == ImageDetailHigh
}

// Endpoint identifies an OpenAI-compatible server. The zero value means the
// provider's default public endpoint with the globally configured credentials.
type Endpoint struct {
	Name         string
	BaseURL      string
	APIKey       string
	Organization string
}

// IsZero reports whether e refers to the default endpoint.
func (e Endpoint) IsZero() bool {
	return e == Endpoint{}
}

// ModelDescriptor describes a selectable model.
type ModelDescriptor struct {
	ID               string
	Provider         ProviderKind
	MaxContextTokens int
	InputPricePer1K  float64
	OutputPricePer1K float64
	SupportsVision   bool

	// Endpoint is set for models served by a custom server.
	Endpoint Endpoint
}

// ContextWindow returns the model's context window, falling back to
// DefaultContextWindow when the window is unknown.
func (m ModelDescriptor) ContextWindow() int {
	if m.MaxContextTokens <= 0 {
		return DefaultContextWindow
	}
	return m.MaxContextTokens
}
