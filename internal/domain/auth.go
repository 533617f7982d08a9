package domain

// Identity is the authenticated agent behind a request or hub connection.
type Identity struct {
	AgentID   string
	AgentName string
}

// IsZero reports whether no agent was resolved.
func (i Identity) IsZero() bool {
	return i.AgentID == ""
}
