// Package planner contains the orchestration core: the agent supervisor,
// progress reporter, plan editor, plan assembler and the orchestrator that
// ties them to the streaming transport and persistence.
package planner

import (
	"sync/atomic"

	"github.com/FACorreiaa/plangenie/internal/app/models"
)

// Sink is the push interface segments are streamed through. Delivery is
// at-least-once within a single run.
type Sink interface {
	Push(segment models.Segment)
}

// Emitter stamps segments with a per-turn monotonic sequence number before
// handing them to the sink.
type Emitter struct {
	sink Sink
	seq  atomic.Int64
}

func NewEmitter(sink Sink) *Emitter {
	return &Emitter{sink: sink}
}

func (e *Emitter) Emit(segType models.SegmentType, data any) {
	e.sink.Push(models.Segment{Type: segType, Data: data, Seq: e.seq.Add(1)})
}

func (e *Emitter) EmitFinal(segType models.SegmentType, data any) {
	e.sink.Push(models.Segment{Type: segType, Data: data, Seq: e.seq.Add(1), Final: true})
}

func (e *Emitter) Text(message string) {
	e.Emit(models.SegmentText, message)
}
