package domain

import (
	"time"
)

// Predicate is an observable action the user must perform on camera.
type Predicate string

const (
	PredicateBlink     Predicate = "blink"
	PredicateTurnLeft  Predicate = "turn_left"
	PredicateTurnRight Predicate = "turn_right"
)

// Predicates is the closed set a challenge draws from.
var Predicates = []Predicate{PredicateBlink, PredicateTurnLeft, PredicateTurnRight}

// Challenge is an issued liveness challenge. Immutable once written; the
// store hands out copies, never the stored record.
type Challenge struct {
	ID         string
	Predicates []Predicate
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Nonce      string
	Signature  string
}

// Expired reports whether the challenge is past its deadline at t.
func (c Challenge) Expired(t time.Time) bool {
	return t.After(c.ExpiresAt)
}

var predicateQuestions = map[Predicate]string{
	PredicateBlink:     "Can you blink for the camera?",
	PredicateTurnLeft:  "Can you turn your head to the left?",
	PredicateTurnRight: "Can you turn your head to the right?",
}

var predicateInstructions = map[Predicate]string{
	PredicateBlink:     "Blink both eyes once while facing the camera",
	PredicateTurnLeft:  "Slowly turn your head to your left, then back to center",
	PredicateTurnRight: "Slowly turn your head to your right, then back to center",
}

// Question returns the user-facing prompt for a predicate.
func (p Predicate) Question() string {
	return predicateQuestions[p]
}

// Instruction returns the user-facing how-to for a predicate.
func (p Predicate) Instruction() string {
	return predicateInstructions[p]
}
