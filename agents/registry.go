package agents

import (
	"agenthub/config"
)

// Agent is the display and routing metadata for one configured agent.
type Agent struct {
	ID     string
	Name   string
	Avatar string
	Color  string
	Model  string
	Kind   string
}

// Registry holds the configured agent roster. The roster is read-only after
// construction; conversation aggregation denormalizes from it on every
// refresh rather than storing agent display data per session.
type Registry struct {
	byID  map[string]Agent
	order []string
}

func NewRegistry(roster []config.AgentConfig) *Registry {
	r := &Registry{byID: make(map[string]Agent, len(roster))}
	for _, a := range roster {
		kind := a.Kind
		if kind == "" {
			kind = "direct"
		}
		agent := Agent{
			ID:     a.ID,
			Name:   a.Name,
			Avatar: a.Avatar,
			Color:  a.Color,
			Model:  a.Model,
			Kind:   kind,
		}
		if _, exists := r.byID[a.ID]; !exists {
			r.order = append(r.order, a.ID)
		}
		r.byID[a.ID] = agent
	}
	return r
}

// Get returns the agent for an id, reporting whether it is configured.
func (r *Registry) Get(id string) (Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Default returns the first configured agent.
func (r *Registry) Default() Agent {
	if len(r.order) == 0 {
		return Agent{}
	}
	return r.byID[r.order[0]]
}

// List returns the roster in configuration order.
func (r *Registry) List() []Agent {
	out := make([]Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
