package parley

// Role represents the role of a message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is a recognised role.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Next returns the role that follows r when a message's role is toggled:
// user, assistant, system, then back to user.
func (r Role) Next() Role {
	switch r {
	case RoleUser:
		return RoleAssistant
	case RoleAssistant:
		return RoleSystem
	default:
		return RoleUser
	}
}

// opposite returns the conversational counterpart of r.
func (r Role) opposite() Role {
	if r == RoleAssistant {
		return RoleUser
	}
	return RoleAssistant
}
