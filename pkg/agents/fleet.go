package agents

import "github.com/fleetvoice/fleetvoice/pkg/realtime"

// DefaultSetKey names the agent set a client starts in when none is
// selected.
const DefaultSetKey = "fleet"

var routeToHumanTool = realtime.ToolSpec{
	Type:        "function",
	Name:        "route_to_human",
	Description: "Route the conversation to a human agent in a specific queue",
	Parameters: realtime.ToolParameters{
		Type: "object",
		Properties: map[string]realtime.ToolProperty{
			"queue_id": {
				Type:        "string",
				Description: "The ID of the queue to route to",
				Enum:        []string{"001", "002", "003", "004", "005"},
			},
			"queue_name": {
				Type:        "string",
				Description: "The name of the queue",
				Enum: []string{
					"Fraud Support",
					"SmartFunds Support",
					"Replacement Cards Support",
					"General Support",
					"Technical Support",
				},
			},
			"reason": {
				Type:        "string",
				Description: "The reason for routing to a human agent",
			},
		},
		Required: []string{"queue_id", "queue_name", "reason"},
	},
}

var sendTextLinkTool = realtime.ToolSpec{
	Type:        "function",
	Name:        "send_text_link",
	Description: "Send a text message with a link to the user's phone number",
	Parameters: realtime.ToolParameters{
		Type: "object",
		Properties: map[string]realtime.ToolProperty{
			"phone_number": {
				Type:        "string",
				Description: "The phone number to send the text to",
			},
			"link_type": {
				Type:        "string",
				Description: "The type of link to send",
				Enum:        []string{"replacement_card", "account_management", "payment_portal", "virtual_card"},
			},
		},
		Required: []string{"phone_number", "link_type"},
	},
}

var generateVirtualCardTool = realtime.ToolSpec{
	Type:        "function",
	Name:        "generate_virtual_card",
	Description: "Generate a virtual card for merchant payment",
	Parameters: realtime.ToolParameters{
		Type: "object",
		Properties: map[string]realtime.ToolProperty{
			"merchant_location_id": {
				Type:        "string",
				Description: "The merchant location ID",
			},
			"fleet_card_number": {
				Type:        "string",
				Description: "The fleet card number",
			},
			"vehicle_id": {
				Type:        "string",
				Description: "The vehicle ID",
			},
		},
		Required: []string{"merchant_location_id", "fleet_card_number", "vehicle_id"},
	},
}

var displayPurchaseControlsUITool = realtime.ToolSpec{
	Type:        "function",
	Name:        "display_purchase_controls_ui",
	Description: "Displays the interactive UI for creating or adjusting purchase control profiles. Use this when the user explicitly asks to set limits, adjust controls, or create a new purchase profile.",
	Parameters: realtime.ToolParameters{
		Type: "object",
		Properties: map[string]realtime.ToolProperty{
			"preset": {
				Type:        "string",
				Description: "Optional: The type of preset to potentially pre-fill (e.g., 'Hurricane', 'Standard').",
			},
		},
	},
}

var displayStatementSummaryUITool = realtime.ToolSpec{
	Type:        "function",
	Name:        "display_statement_summary_ui",
	Description: "Displays the interactive UI summarizing the latest billing statement. Use this when the user explicitly asks to view their statement, bill, or statement summary.",
	Parameters: realtime.ToolParameters{
		Type: "object",
		Properties: map[string]realtime.ToolProperty{
			"period": {
				Type:        "string",
				Description: "Optional: The specific statement period requested (e.g., 'March 2025', 'latest').",
			},
		},
	},
}

func fleetAgents() []Definition {
	fraud := Definition{
		Name:              "Fraud Agent",
		PublicDescription: "Agent that handles fraud alerts and suspicious transactions.",
		Instructions: `You are a fleet-card customer service AI assistant specializing in fraud alerts.
Your primary goal is to quickly identify fraud-related issues and route them to human agents.
When a user mentions fraud, suspicious transactions, or unauthorized charges:
1. Express understanding of the urgency.
2. Inform them you'll connect them to a fraud specialist.
3. Use the route_to_human tool to route to Queue 001 (Fraud Support).
Do not attempt to handle fraud issues yourself. These require human intervention.
Be professional, empathetic, and concise.`,
		Tools: []realtime.ToolSpec{routeToHumanTool},
	}

	smartFunds := Definition{
		Name:              "Smartfunds Agent",
		PublicDescription: "Agent that handles SmartFunds balance inquiries.",
		Instructions: `You are a fleet-card customer service AI assistant specializing in SmartFunds inquiries.
When a user asks about checking their SmartFunds balance:
1. Acknowledge their request.
2. Inform them you'll connect them to a SmartFunds specialist.
3. Use the route_to_human tool to route to Queue 002 (SmartFunds Support).
SmartFunds balance information requires authentication and human assistance.
Be professional, helpful, and concise in your responses.`,
		Tools: []realtime.ToolSpec{routeToHumanTool},
	}

	replacementCard := Definition{
		Name:              "Replacement Card Agent",
		PublicDescription: "Agent that handles replacement card requests.",
		Instructions: `You are a fleet-card customer service AI assistant specializing in card replacement requests.
When a user needs a replacement card:
1. Offer to send them a direct link to order a replacement card via text using the 'send_text_link' tool with the "replacement_card" link type. Ask for their phone number if needed.
2. Confirm the link has been sent.
3. If they need additional help after receiving the link, or if they cannot use the link, offer to connect them to a human agent using the 'route_to_human' tool with Queue 003 (Replacement Cards Support).
Be professional, efficient, and helpful.`,
		Tools: []realtime.ToolSpec{routeToHumanTool, sendTextLinkTool},
	}

	virtualCard := Definition{
		Name:              "Virtual Card Agent",
		PublicDescription: "Agent that helps generate virtual cards for merchant payments.",
		Instructions: `You are a fleet-card customer service AI assistant specializing in virtual card generation.
When a user needs to generate a virtual card:
1. Inform them you can help.
2. Request the necessary information: Merchant Location ID, Fleet Card Number, Vehicle ID.
3. Once you have the information, use the 'generate_virtual_card' tool.
4. Present the result (last 4 digits, expiration) clearly to the user.
If the user doesn't have all the required info or needs further help, offer to connect them to a human agent using 'route_to_human' tool with Queue 004 (General Support).
Be professional and security-conscious.`,
		Tools: []realtime.ToolSpec{routeToHumanTool, generateVirtualCardTool},
	}

	main := Definition{
		Name:              "Main Agent",
		PublicDescription: "Main fleet-card customer service agent that routes to specialized agents or handles general inquiries.",
		Instructions: `You are Fleet IQ, an AI assistant for fleet card customers. Your role is to understand the user's need and take the appropriate action.

Available Actions:
1. Transfer to Specialized AI Agent: If the query is clearly about fraud, SmartFunds, replacement cards, or virtual card generation, use the 'transferAgents' tool to route to the corresponding agent. Explain why you are transferring.
2. Display Interactive UI:
   - If the user wants to adjust purchase controls, set limits, or create purchase profiles, use the 'display_purchase_controls_ui' tool.
   - If the user wants to view their statement summary or bill, use the 'display_statement_summary_ui' tool.
3. Use Direct Tools: If the user wants a link texted for account management or payments, use the 'send_text_link' tool (types: 'account_management', 'payment_portal'). Ask for the phone number if needed.
4. Route to Human: For complex issues, requests for information you cannot provide, or if the user explicitly requests a human, use the 'route_to_human' tool with the most appropriate queue. Explain why you are routing them.
5. Answer Directly: For general questions about fleet card services, policies, or how to use features that don't require specific tools or transfers, provide a helpful and concise answer.

Interaction Flow:
- Greet the user and ask how you can help.
- Analyze the user's request.
- Choose the single best action from the list above.
- Before transferring or routing to human, inform the user.
- After using a tool (like sending a link or displaying UI), confirm the action was taken and ask if further assistance is needed.
- Be professional, helpful, and efficient.`,
		Tools: []realtime.ToolSpec{
			routeToHumanTool,
			sendTextLinkTool,
			displayPurchaseControlsUITool,
			displayStatementSummaryUITool,
		},
		DownstreamAgents: []string{
			"Fraud Agent",
			"Smartfunds Agent",
			"Replacement Card Agent",
			"Virtual Card Agent",
		},
	}

	return []Definition{main, fraud, smartFunds, replacementCard, virtualCard}
}
