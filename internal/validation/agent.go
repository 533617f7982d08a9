package validation

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// AgentLookup is the read-only agent existence check.
type AgentLookup interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
}

// AgentReference validates an agent identifier and that it resolves to an
// existing agent. It is shared by every request carrying an agent reference.
type AgentReference struct {
	agents   AgentLookup
	property string
	required bool
}

var _ Validator[*string] = (*AgentReference)(nil)

// NewAgentReference builds the validator. When required is false a nil or
// blank reference passes.
func NewAgentReference(agents AgentLookup, property string, required bool) *AgentReference {
	return &AgentReference{agents: agents, property: property, required: required}
}

// Validate checks the reference.
func (v *AgentReference) Validate(ctx context.Context, id *string) (Result, error) {
	var res Result
	if id == nil || strings.TrimSpace(*id) == "" {
		if v.required {
			res.Add(v.property, CodeAgentIDRequired, "agent id is required")
		}
		return res, nil
	}
	parsed, err := uuid.Parse(strings.TrimSpace(*id))
	if err != nil || parsed == uuid.Nil {
		res.Add(v.property, CodeInvalidAgentID, "agent id must be a valid identifier")
		return res, nil
	}
	exists, err := v.agents.ExistsByID(ctx, parsed.String())
	if err != nil {
		return Result{}, err
	}
	if !exists {
		res.Add(v.property, CodeAgentNotFound, "agent does not exist")
	}
	return res, nil
}
