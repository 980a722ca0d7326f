// Package agents holds the static agent configuration: named agent
// definitions grouped into sets, with lookup by set key and agent
// name. Sets are registered once at startup and never mutated.
package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fleetvoice/fleetvoice/pkg/realtime"
	"github.com/fleetvoice/fleetvoice/pkg/transcript"
)

// TransferToolName is the derived hand-off tool added to every agent
// that declares downstream agents.
const TransferToolName = "transferAgents"

// ToolLogic executes a tool in-process. It receives the parsed call
// arguments and a transcript snapshot for context.
type ToolLogic func(ctx context.Context, args map[string]any, items []transcript.Item) (any, error)

// Definition is one immutable agent configuration.
type Definition struct {
	// Name is unique within a set.
	Name string

	// PublicDescription is shown to users and to other agents
	// deciding where to transfer.
	PublicDescription string

	// Instructions are sent verbatim to the backend.
	Instructions string

	// Tools are the capabilities advertised for this agent.
	Tools []realtime.ToolSpec

	// DownstreamAgents names the allowed hand-off targets. The
	// registry derives a transfer tool from this list at load time.
	DownstreamAgents []string

	// ToolLogic maps tool names to in-process execution logic.
	ToolLogic map[string]ToolLogic
}

// Set is an ordered agent group sharing a scope. The first agent is
// the set's default entry agent.
type Set struct {
	Key    string
	Agents []Definition
}

// Default returns the set's entry agent.
func (s Set) Default() (Definition, bool) {
	if len(s.Agents) == 0 {
		return Definition{}, false
	}
	return s.Agents[0], true
}

// Agent looks up an agent by name within the set.
func (s Set) Agent(name string) (Definition, bool) {
	for _, agent := range s.Agents {
		if agent.Name == name {
			return agent, true
		}
	}
	return Definition{}, false
}

// Names returns the set's agent names in order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.Agents))
	for _, agent := range s.Agents {
		names = append(names, agent.Name)
	}
	return names
}

// Registry maps set keys to published agent sets.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]Set
}

func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]Set)}
}

// Register derives per-agent transfer tools and publishes the set
// under the given key. Registration happens at startup; re-registering
// a key is an error.
func (r *Registry) Register(key string, defs []Definition) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("agents: set key must not be empty")
	}
	if len(defs) == 0 {
		return fmt.Errorf("agents: set %q must contain at least one agent", key)
	}
	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			return fmt.Errorf("agents: set %q contains an unnamed agent", key)
		}
		if _, dup := seen[def.Name]; dup {
			return fmt.Errorf("agents: set %q repeats agent name %q", key, def.Name)
		}
		seen[def.Name] = struct{}{}
	}
	for _, def := range defs {
		for _, target := range def.DownstreamAgents {
			if _, ok := seen[target]; !ok {
				return fmt.Errorf("agents: %q declares unknown downstream agent %q", def.Name, target)
			}
		}
	}

	published := withTransferTools(defs)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sets[key]; exists {
		return fmt.Errorf("agents: set %q is already registered", key)
	}
	r.sets[key] = Set{Key: key, Agents: published}
	return nil
}

// Set looks up a published set by key.
func (r *Registry) Set(key string) (Set, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[key]
	return set, ok
}

// Agent looks up an agent by set key and name.
func (r *Registry) Agent(key, name string) (Definition, bool) {
	set, ok := r.Set(key)
	if !ok {
		return Definition{}, false
	}
	return set.Agent(name)
}

// Keys returns the registered set keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.sets))
	for key := range r.sets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// withTransferTools augments every agent that declares downstream
// agents with the derived transfer tool. The destination enum is
// exactly the agent's configured hand-off target list. This runs
// before the set is published, never lazily per request.
func withTransferTools(defs []Definition) []Definition {
	byName := make(map[string]Definition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	out := make([]Definition, len(defs))
	for i, def := range defs {
		out[i] = def
		out[i].Tools = append([]realtime.ToolSpec(nil), def.Tools...)
		if len(def.DownstreamAgents) == 0 {
			continue
		}

		var desc strings.Builder
		desc.WriteString("Triggers a transfer of the user to a more specialized agent. Only transfer when one of the available agents is a better fit.\nAvailable agents:\n")
		for _, name := range def.DownstreamAgents {
			target := byName[name]
			fmt.Fprintf(&desc, "- %s: %s\n", target.Name, target.PublicDescription)
		}

		out[i].Tools = append(out[i].Tools, realtime.ToolSpec{
			Type:        "function",
			Name:        TransferToolName,
			Description: desc.String(),
			Parameters: realtime.ToolParameters{
				Type: "object",
				Properties: map[string]realtime.ToolProperty{
					"rationale_for_transfer": {
						Type:        "string",
						Description: "The reasoning why this transfer is needed.",
					},
					"conversation_context": {
						Type:        "string",
						Description: "Relevant context from the conversation that will help the recipient perform the correct action.",
					},
					"destination_agent": {
						Type:        "string",
						Description: "The name of the agent that should handle the conversation next.",
						Enum:        append([]string(nil), def.DownstreamAgents...),
					},
				},
				Required: []string{"rationale_for_transfer", "conversation_context", "destination_agent"},
			},
		})
	}
	return out
}
