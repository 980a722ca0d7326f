package agents

import (
	"context"
	"testing"

	"github.com/fleetvoice/fleetvoice/pkg/transcript"
)

func TestBuiltin_SetsAndLookup(t *testing.T) {
	t.Parallel()

	registry := Builtin()

	set, ok := registry.Set(DefaultSetKey)
	if !ok {
		t.Fatalf("default set %q not registered", DefaultSetKey)
	}
	entry, ok := set.Default()
	if !ok || entry.Name != "Main Agent" {
		t.Fatalf("default entry agent = %q, want Main Agent", entry.Name)
	}

	if _, ok := registry.Agent(DefaultSetKey, "Fraud Agent"); !ok {
		t.Fatalf("Fraud Agent not found in default set")
	}
	if _, ok := registry.Agent(DefaultSetKey, "Nonexistent"); ok {
		t.Fatalf("lookup of unknown agent reported ok")
	}
	if _, ok := registry.Set("unknownSet"); ok {
		t.Fatalf("lookup of unknown set reported ok")
	}
}

func TestRegister_DerivesTransferTool(t *testing.T) {
	t.Parallel()

	registry := Builtin()
	main, ok := registry.Agent(DefaultSetKey, "Main Agent")
	if !ok {
		t.Fatalf("Main Agent not found")
	}

	var found bool
	for _, tool := range main.Tools {
		if tool.Name != TransferToolName {
			continue
		}
		found = true
		destination, ok := tool.Parameters.Properties["destination_agent"]
		if !ok {
			t.Fatalf("transfer tool lacks destination_agent parameter")
		}
		want := []string{"Fraud Agent", "Smartfunds Agent", "Replacement Card Agent", "Virtual Card Agent"}
		if len(destination.Enum) != len(want) {
			t.Fatalf("destination enum = %v, want %v", destination.Enum, want)
		}
		for i, name := range want {
			if destination.Enum[i] != name {
				t.Errorf("destination enum[%d] = %q, want %q", i, destination.Enum[i], name)
			}
		}
	}
	if !found {
		t.Fatalf("Main Agent has no derived %s tool", TransferToolName)
	}

	// Agents without downstream targets must not get the tool.
	fraud, _ := registry.Agent(DefaultSetKey, "Fraud Agent")
	for _, tool := range fraud.Tools {
		if tool.Name == TransferToolName {
			t.Fatalf("Fraud Agent unexpectedly carries %s", TransferToolName)
		}
	}
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if err := registry.Register("", fleetAgents()); err == nil {
		t.Errorf("empty key accepted")
	}
	if err := registry.Register("empty", nil); err == nil {
		t.Errorf("empty set accepted")
	}
	if err := registry.Register("dup", []Definition{{Name: "A"}, {Name: "A"}}); err == nil {
		t.Errorf("duplicate agent names accepted")
	}
	if err := registry.Register("bad", []Definition{{Name: "A", DownstreamAgents: []string{"Missing"}}}); err == nil {
		t.Errorf("unknown downstream target accepted")
	}

	if err := registry.Register("ok", []Definition{{Name: "A"}}); err != nil {
		t.Fatalf("valid set rejected: %v", err)
	}
	if err := registry.Register("ok", []Definition{{Name: "B"}}); err == nil {
		t.Errorf("re-registration of key accepted")
	}
}

func TestRegister_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	defs := fleetAgents()
	before := len(defs[0].Tools)

	registry := NewRegistry()
	if err := registry.Register("fleetCopy", defs); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(defs[0].Tools) != before {
		t.Fatalf("Register mutated caller's tool slice: %d -> %d", before, len(defs[0].Tools))
	}
}

func TestVerifyCallbackNumber_LocalLogic(t *testing.T) {
	t.Parallel()

	store := transcript.NewStore()
	store.AddMessage("u1", "user", "My number is 555-867-5309")

	authenticator, ok := Builtin().Agent(FrontDeskSetKey, "Authenticator")
	if !ok {
		t.Fatalf("Authenticator not found")
	}
	logic, ok := authenticator.ToolLogic["verify_callback_number"]
	if !ok {
		t.Fatalf("verify_callback_number logic not registered")
	}

	result, err := logic(context.Background(), map[string]any{"phone_number": "(555) 867-5309"}, store.Items())
	if err != nil {
		t.Fatalf("logic error: %v", err)
	}
	verdict, ok := result.(map[string]any)
	if !ok || verdict["verified"] != true {
		t.Fatalf("verdict = %+v, want verified", result)
	}

	result, err = logic(context.Background(), map[string]any{"phone_number": "555-000-0000"}, store.Items())
	if err != nil {
		t.Fatalf("logic error: %v", err)
	}
	verdict, _ = result.(map[string]any)
	if verdict["verified"] != false {
		t.Fatalf("verdict = %+v, want not verified", result)
	}
}
