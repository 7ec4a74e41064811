package model

// Preferences are a user's explicit taste settings, captured at signup and
// forwarded to the MCP service as the seed of their preference context.
//
// The JSON field names mirror the MCP wire format exactly — these structs
// are marshalled straight into the upstream request body.
type Preferences struct {
	DietaryRestrictions []string `json:"dietary_restrictions"`
	CuisinePreferences  []string `json:"cuisine_preferences"`
	SpiceLevel          string   `json:"spice_level,omitempty"` // "Mild", "Medium", "Hot"
	Budget              string   `json:"budget,omitempty"`      // "$", "$$", "$$$"
}

// ContextSummary is the full preference-context snapshot the MCP service
// returns for display. The gateway relays it verbatim; nothing in here is
// ever computed locally (the displayed factors must always reflect the most
// recent server snapshot).
type ContextSummary struct {
	UserID              string             `json:"user_id"`
	ExplicitPreferences Preferences        `json:"explicit_preferences"`
	InferredPreferences map[string]float64 `json:"inferred_preferences"`
	RecentInteractions  []Interaction      `json:"recent_interactions"`
	ContextAge          string             `json:"context_age"`
	PreferenceInsights  []string           `json:"preference_insights"`
}

// Interaction is a single entry in the upstream interaction history.
// The timestamp is stamped by the gateway, not the client, so the history
// ordering cannot be skewed by a client clock.
type Interaction struct {
	ItemID          string `json:"item_id"`
	ItemType        string `json:"item_type"`        // "restaurant" or "dish"
	InteractionType string `json:"interaction_type"` // "like" or "dislike"
	Timestamp       string `json:"timestamp"`        // RFC 3339, UTC
}
