package planner

import (
	"context"
	"time"

	"github.com/FACorreiaa/plangenie/internal/app/models"
)

const progressSpacing = 2500 * time.Millisecond

var progressMessages = map[models.Component][]string{
	models.ComponentFlights: {
		"Searching for flights...",
		"Finding the best flight options...",
	},
	models.ComponentHotels: {
		"Looking for hotels...",
		"Comparing hotel prices and ratings...",
	},
	models.ComponentItinerary: {
		"Building your itinerary...",
		"Curating activities for each day...",
	},
}

// ProgressReporter emits interim status text while agents run. Stop
// cancels the background task and waits for it to unwind, so no progress
// message can race past whatever the caller emits next.
type ProgressReporter struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartProgress emits the initial message synchronously, before any agent
// is scheduled, then streams two templated messages per requested
// component from a background task and idles until stopped.
func StartProgress(ctx context.Context, em *Emitter, components []models.Component) *ProgressReporter {
	em.Text("Got it! Working on your trip now...")

	ctx, cancel := context.WithCancel(ctx)
	p := &ProgressReporter{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)

		first := true
		for _, component := range components {
			for _, message := range progressMessages[component] {
				if !first {
					select {
					case <-time.After(progressSpacing):
					case <-ctx.Done():
						return
					}
				}
				first = false
				em.Text(message)
			}
		}

		// All messages sent: idle until cancelled.
		<-ctx.Done()
	}()

	return p
}

// Stop cancels the reporter and waits for the background task to finish.
func (p *ProgressReporter) Stop() {
	p.cancel()
	<-p.done
}

// Abort cancels without waiting. Used on orchestration failure, where an
// error segment follows immediately.
func (p *ProgressReporter) Abort() {
	p.cancel()
}
