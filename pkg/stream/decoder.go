package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	qwerrors "github.com/qwenweb/qwenweb/pkg/errors"
	"github.com/qwenweb/qwenweb/pkg/protocol"
	"github.com/qwenweb/qwenweb/pkg/telemetry"
)

const (
	eventPrefix  = "data:"
	doneSentinel = "[DONE]"

	// maxLineSize bounds a single event line; answer deltas are small but
	// reasoning blocks can run long.
	maxLineSize = 1024 * 1024
)

// Phase aliases for callers that only import this package
const (
	PhaseThink  = protocol.PhaseThink
	PhaseAnswer = protocol.PhaseAnswer
)

// Result is what one decoded turn produces. Answer is the primary result;
// Reasoning is a side artifact for display and logging.
type Result struct {
	Answer    string
	Reasoning string
}

// Decoder consumes a newline-delimited event stream and separates reasoning
// from answer content. It is a per-turn object: construct one, call Decode
// once, discard it.
//
// Reasoning content is surfaced through OnReasoning exactly once per
// transition away from the think phase, while answer content is only
// returned at end of stream. The asymmetry is deliberate: reasoning is shown
// progressively as completed blocks, the answer atomically at the end.
type Decoder struct {
	// OnParent receives the server-issued response id that threads the next
	// turn. Invoked at most once per response.created record.
	OnParent func(responseID string)

	// OnReasoning receives the accumulated reasoning buffer at each
	// transition away from the think phase. Optional.
	OnReasoning func(reasoning string)
}

type decodeState int

const (
	stateAwaitingEvents decodeState = iota
	stateDone
)

// Decode runs the stream to completion. It terminates on the [DONE]
// sentinel, on exhaustion of the line source, or on a read error; the first
// two are success, the last returns a TRANSPORT error carrying whatever was
// accumulated. Individual unparseable lines are skipped, never fatal.
func (d *Decoder) Decode(r io.Reader) (Result, error) {
	acc := AcquireAccumulator()
	defer ReleaseAccumulator(acc)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	state := stateAwaitingEvents
	answerFinished := false

	for state != stateDone && scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		payload, ok := strings.CutPrefix(line, eventPrefix)
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" {
			continue
		}

		if payload == doneSentinel {
			telemetry.StreamEventsTotal.WithLabelValues("done").Inc()
			state = stateDone
			continue
		}

		var event protocol.StreamPayload
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			// One bad frame must never abort the turn.
			telemetry.StreamMalformedLinesTotal.Inc()
			continue
		}

		if event.ResponseCreated != nil {
			telemetry.StreamEventsTotal.WithLabelValues("created").Inc()
			if event.ResponseCreated.ResponseID != "" && d.OnParent != nil {
				d.OnParent(event.ResponseCreated.ResponseID)
			}
			continue
		}

		if answerFinished {
			continue
		}

		for _, choice := range event.Choices {
			telemetry.StreamEventsTotal.WithLabelValues("delta").Inc()
			delta := choice.Delta

			phase := delta.Phase
			if phase == "" {
				phase = PhaseAnswer
			}

			if phase != acc.CurrentPhase() {
				d.flushOnTransition(acc)
				acc.SetPhase(phase)
			}

			acc.Append(phase, delta.Content)

			if delta.Status == protocol.StatusFinished && phase == PhaseAnswer {
				answerFinished = true
				break
			}
		}
	}

	if err := scanner.Err(); err != nil {
		result := acc.Result()
		return result, qwerrors.Wrap(err, qwerrors.ErrCodeTransport, "reading event stream").
			WithContext("partial_answer_len", len(result.Answer))
	}

	// A stream that ends while still in the think phase never hits a
	// transition, so OnReasoning is not invoked; the buffer still comes
	// back in the result.
	return acc.Result(), nil
}

// flushOnTransition surfaces the reasoning buffer when leaving the think
// phase. Answer content is intentionally not flushed here.
func (d *Decoder) flushOnTransition(acc *Accumulator) {
	if acc.CurrentPhase() != PhaseThink {
		return
	}
	if acc.Reasoning() == "" {
		return
	}
	if d.OnReasoning != nil {
		d.OnReasoning(acc.Reasoning())
	}
}
