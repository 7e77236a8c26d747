package parley

import "fmt"

// Validate checks universal constraints on Request.
// Provider implementations may apply additional provider-specific validation.
func (r Request) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("model is required: %w", ErrValidation)
	}
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	for i, m := range r.Messages {
		if err := ValidateMessage(m); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ValidateMessage checks that a message's role is known and that image
// segments appear only in user messages.
func ValidateMessage(m AdaptedMessage) error {
	if !m.Role.IsValid() {
		return fmt.Errorf("unknown role %q: %w", m.Role, ErrValidation)
	}
	for _, b := range m.Blocks {
		switch b := b.(type) {
		case TextBlock:
		case ImageURLBlock:
			if m.Role != RoleUser {
				return fmt.Errorf("ImageURLBlock not allowed in %s message: %w", m.Role, ErrValidation)
			}
			if b.URL == "" {
				return fmt.Errorf("ImageURLBlock requires a url: %w", ErrValidation)
			}
		default:
			return fmt.Errorf("unknown content block %T: %w", b, ErrValidation)
		}
	}
	return nil
}
