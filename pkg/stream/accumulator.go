package stream

import (
	"strings"
	"sync"
)

// accumulatorPool recycles Accumulator instances to reduce GC pressure
// during streaming operations.
var accumulatorPool = sync.Pool{
	New: func() any {
		return &Accumulator{}
	},
}

// AcquireAccumulator retrieves an Accumulator from the pool, reset and ready
// for use.
func AcquireAccumulator() *Accumulator {
	a := accumulatorPool.Get().(*Accumulator)
	a.Reset()
	return a
}

// ReleaseAccumulator returns an Accumulator to the pool for reuse. The
// accumulator must not be used after this call.
func ReleaseAccumulator(a *Accumulator) {
	if a == nil {
		return
	}
	a.Reset()
	accumulatorPool.Put(a)
}

// Accumulator gathers streamed content into per-phase buffers. It lives for
// one chat turn: created empty, fed by the decoder, discarded when the turn
// returns. Only the parent pointer survives across turns, and that belongs
// to the conversation state, not here.
type Accumulator struct {
	reasoning strings.Builder
	answer    strings.Builder

	// currentPhase is empty until the first content delta arrives.
	currentPhase string
}

// CurrentPhase returns the phase of the most recent delta, empty before any
func (a *Accumulator) CurrentPhase() string {
	return a.currentPhase
}

// SetPhase records a phase transition
func (a *Accumulator) SetPhase(phase string) {
	a.currentPhase = phase
}

// Append adds text to the buffer for the given phase
func (a *Accumulator) Append(phase, text string) {
	if text == "" {
		return
	}
	if phase == PhaseThink {
		a.reasoning.WriteString(text)
		return
	}
	a.answer.WriteString(text)
}

// Reasoning returns the accumulated reasoning content
func (a *Accumulator) Reasoning() string {
	return a.reasoning.String()
}

// Answer returns the accumulated answer content
func (a *Accumulator) Answer() string {
	return a.answer.String()
}

// Result snapshots both buffers
func (a *Accumulator) Result() Result {
	return Result{
		Answer:    a.answer.String(),
		Reasoning: a.reasoning.String(),
	}
}

// Reset clears the accumulator for reuse
func (a *Accumulator) Reset() {
	a.reasoning.Reset()
	a.answer.Reset()
	a.currentPhase = ""
}
