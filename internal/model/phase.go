package model

import "time"

// Phase classifies the market structure of a symbol.
type Phase string

const (
	PhaseAccumulation Phase = "ACCUMULATION"
	PhaseNeutral      Phase = "NEUTRAL"
	PhaseDistribution Phase = "DISTRIBUTION"
)

// PhaseEvent is a structural event detected on a single bar.
type PhaseEvent string

const (
	EventNone   PhaseEvent = "NONE"
	EventSOS    PhaseEvent = "SOS"
	EventSpring PhaseEvent = "SPRING"
	EventSOW    PhaseEvent = "SOW"
)

// PhaseState is the carried Wyckoff state for one symbol. It is owned by
// the phase machine and mutated only in date order.
type PhaseState struct {
	Symbol     string
	AsOfDate   time.Time
	Phase      Phase
	LastEvent  PhaseEvent
	Divergence bool
}
