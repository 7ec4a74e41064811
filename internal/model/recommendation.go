package model

// Restaurant is one recommended restaurant, shaped exactly as the MCP
// service returns it.
type Restaurant struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Cuisine     string `json:"cuisine"`
	Description string `json:"description"`
	PriceRange  string `json:"price_range"`
	Location    string `json:"location"`
}

// Dish is one recommended dish.
type Dish struct {
	ID           int      `json:"id"`
	RestaurantID int      `json:"restaurant_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	DietaryTags  []string `json:"dietary_tags"`
}

// EnhancedDish is a dish augmented with AI-generated content. Only the
// ai-recommendations path produces these.
type EnhancedDish struct {
	ID            int      `json:"id"`
	RestaurantID  int      `json:"restaurant_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	AIDescription string   `json:"ai_description,omitempty"`
	AIAttributes  []string `json:"ai_attributes,omitempty"`
	Price         float64  `json:"price"`
	DietaryTags   []string `json:"dietary_tags"`
}

// Recommendations is the upstream recommendation payload, relayed verbatim
// by the gateway. EnhancedDishes is empty in standard mode — callers must
// treat its absence as equivalent to standard mode rather than failing.
//
// WHY ONE STRUCT FOR BOTH MODES?
// The AI-enhanced response is a strict superset of the standard one
// (upstream models it as inheritance). A single struct with omitempty on
// the AI-only fields keeps both payloads round-trippable without two
// near-identical types.
type Recommendations struct {
	Restaurants           []Restaurant       `json:"restaurants"`
	Dishes                []Dish             `json:"dishes"`
	EnhancedDishes        []EnhancedDish     `json:"enhanced_dishes,omitempty"`
	Message               string             `json:"message"`
	RecommendationFactors map[string]float64 `json:"recommendation_factors"`
	UserContext           map[string]any     `json:"user_context,omitempty"`
	AIPowered             bool               `json:"ai_powered,omitempty"`
}

// SentimentAnalysis is the upstream sentiment verdict on free-text
// feedback. The gateway performs no sentiment inference of its own — this
// is purely relayed.
type SentimentAnalysis struct {
	Sentiment  string         `json:"sentiment"` // "POSITIVE", "NEGATIVE", "NEUTRAL"
	Confidence float64        `json:"confidence"`
	Details    map[string]any `json:"details,omitempty"`
}
