package app

import (
	"errors"

	"shopsmart/internal/shopping"
)

// State is the controller's position in the generation cycle.
type State int

const (
	StateIdle State = iota
	StatePending
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrGenerationInFlight = errors.New("a generation is already in progress")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrNoResult           = errors.New("no result to show")
	ErrEntryNotFound      = errors.New("history entry not found")
	// ErrReset is returned by Submit when Reset abandoned the request.
	ErrReset = errors.New("generation was reset before it completed")
)

// fallbackMessage is shown for failures that carry no user-facing text.
const fallbackMessage = "Failed to generate shopping list. Please try again."

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	State  State
	Input  *shopping.UserInput
	Result *shopping.GenerationResult
	Error  string
	Budget float64
}

// View is the derived presentation of the current result.
type View struct {
	Groups     shopping.StoreGroups
	ItemCount  int
	TotalCost  float64
	Budget     float64
	BudgetUsed int
	Nutrition  shopping.Nutrition
	Notes      string
	Menu       []shopping.DayMenu
}
