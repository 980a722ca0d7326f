package agents

import (
	"context"
	"strings"

	"github.com/fleetvoice/fleetvoice/pkg/realtime"
	"github.com/fleetvoice/fleetvoice/pkg/transcript"
)

// FrontDeskSetKey names the small authentication scenario set.
const FrontDeskSetKey = "frontDesk"

var verifyCallbackNumberTool = realtime.ToolSpec{
	Type:        "function",
	Name:        "verify_callback_number",
	Description: "Checks that the phone number the caller read back matches the one they gave earlier in the conversation.",
	Parameters: realtime.ToolParameters{
		Type: "object",
		Properties: map[string]realtime.ToolProperty{
			"phone_number": {
				Type:        "string",
				Description: "The phone number the caller just read back",
			},
		},
		Required: []string{"phone_number"},
	},
}

// verifyCallbackNumber is local tool logic: it scans the transcript
// for an earlier user utterance containing the same digits.
func verifyCallbackNumber(_ context.Context, args map[string]any, items []transcript.Item) (any, error) {
	claimed, _ := args["phone_number"].(string)
	digits := digitsOnly(claimed)
	if digits == "" {
		return map[string]any{"verified": false, "reason": "no phone number provided"}, nil
	}
	for _, item := range items {
		if item.Kind != transcript.KindMessage || item.Role != realtime.RoleUser {
			continue
		}
		if strings.Contains(digitsOnly(item.Text), digits) {
			return map[string]any{"verified": true, "phone_number": claimed}, nil
		}
	}
	return map[string]any{"verified": false, "reason": "number not found in conversation"}, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func frontDeskAgents() []Definition {
	authenticator := Definition{
		Name:              "Authenticator",
		PublicDescription: "Front desk agent that verifies the caller before anything else.",
		Instructions: `You are a front desk assistant for fleet card customers.
Greet the caller, collect their callback phone number, then read it back and confirm it with the 'verify_callback_number' tool before helping further.
Once the caller is verified, transfer them to the receptionist.
Be warm and brief.`,
		Tools:            []realtime.ToolSpec{verifyCallbackNumberTool},
		DownstreamAgents: []string{"Receptionist"},
		ToolLogic: map[string]ToolLogic{
			"verify_callback_number": verifyCallbackNumber,
		},
	}

	receptionist := Definition{
		Name:              "Receptionist",
		PublicDescription: "Front desk agent that answers general questions for verified callers.",
		Instructions: `You are a receptionist for fleet card customers who have already been verified.
Answer general questions about office hours, mailing addresses, and where to find forms.
If anything requires account access, use the 'route_to_human' tool with Queue 004 (General Support).
Be warm and brief.`,
		Tools: []realtime.ToolSpec{routeToHumanTool},
	}

	return []Definition{authenticator, receptionist}
}

// Builtin returns the process-wide registry with every shipped agent
// set published, transfer tools derived.
func Builtin() *Registry {
	registry := NewRegistry()
	// Registration of static sets cannot fail; the definitions are
	// compiled in and covered by tests.
	if err := registry.Register(DefaultSetKey, fleetAgents()); err != nil {
		panic(err)
	}
	if err := registry.Register(FrontDeskSetKey, frontDeskAgents()); err != nil {
		panic(err)
	}
	return registry
}
