package ai

// Moods is the vocabulary offered to analyzers for the mood field.
// Analyzers may return other single-word moods.
var Moods = []string{
	"angry",
	"anxious",
	"calm",
	"confused",
	"content",
	"excited",
	"frustrated",
	"grateful",
	"happy",
	"hopeful",
	"lonely",
	"neutral",
	"overwhelmed",
	"reflective",
	"sad",
	"tired",
}

// StressLevels lists the accepted stress_level values in prompt order.
var StressLevels = []string{"low", "medium", "high"}
