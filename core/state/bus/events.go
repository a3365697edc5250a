package bus

import (
	eventsdb "github.com/DividendTeam/dividend-go-engine/core/events"
)

type Events interface {
	AddEvent(height uint64, event eventsdb.Event)
}

// nopEvents stands in when no event store is attached, so stores can
// emit unconditionally.
type nopEvents struct{}

func (nopEvents) AddEvent(height uint64, event eventsdb.Event) {}
