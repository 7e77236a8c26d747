package parley

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so output
// matches any color scheme. A negative index means no color.
type Theme struct {
	User      int // User turn label
	Assistant int // Assistant turn label
	System    int // System turn label
	Important int // Marker on messages exempt from the first trim pass
	Error     int // Error messages
	Muted     int // Status lines, code gutters, link targets
	Accent    int // Headings, selected model
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		User:      4,
		Assistant: 2,
		System:    3,
		Important: 5,
		Error:     1,
		Muted:     8,
		Accent:    5,
	}
}

// RoleColor returns the label color for r.
func (t Theme) RoleColor(r Role) int {
	switch r {
	case RoleAssistant:
		return t.Assistant
	case RoleSystem:
		return t.System
	default:
		return t.User
	}
}
