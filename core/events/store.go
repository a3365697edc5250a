package events

import (
	"encoding/binary"
	"sync"

	"github.com/tendermint/go-amino"
	db "github.com/tendermint/tm-db"
)

// IEventsDB is the height-keyed event journal consumed through the bus.
type IEventsDB interface {
	AddEvent(height uint64, event Event)
	LoadEvents(height uint64) Events
	CommitEvents(height uint64) error
}

var cdc = amino.NewCodec()

func init() {
	registerAminoEvents(cdc)
}

func registerAminoEvents(codec *amino.Codec) {
	codec.RegisterInterface((*Event)(nil), nil)
	codec.RegisterConcrete(&TokenRegisteredEvent{}, TypeTokenRegisteredEvent, nil)
	codec.RegisterConcrete(&TokenRemovedEvent{}, TypeTokenRemovedEvent, nil)
	codec.RegisterConcrete(&TokenFrozenEvent{}, TypeTokenFrozenEvent, nil)
	codec.RegisterConcrete(&DistributionScheduledEvent{}, TypeDistributionScheduledEvent, nil)
	codec.RegisterConcrete(&DividendDistributedEvent{}, TypeDividendDistributedEvent, nil)
	codec.RegisterConcrete(&DistributionCanceledEvent{}, TypeDistributionCanceledEvent, nil)
	codec.RegisterConcrete(&DividendClaimEvent{}, TypeDividendClaimEvent, nil)
	codec.RegisterConcrete(&GuardianChangedEvent{}, TypeGuardianChangedEvent, nil)
	codec.RegisterConcrete(&EmergencyShutdownEvent{}, TypeEmergencyShutdownEvent, nil)
}

type EventsStore struct {
	db    db.DB
	cache *eventsCache

	lock sync.RWMutex
}

type eventsCache struct {
	height uint64
	events Events

	lock sync.RWMutex
}

func (c *eventsCache) set(height uint64, events Events) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.height, c.events = height, events
}

func (c *eventsCache) get() Events {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.events
}

func (c *eventsCache) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.height = 0
	c.events = nil
}

func NewEventsStore(db db.DB) *EventsStore {
	return &EventsStore{
		db:    db,
		cache: &eventsCache{},
	}
}

func (store *EventsStore) AddEvent(height uint64, event Event) {
	events := store.getEvents(height)
	store.cache.set(height, append(events, event))
}

// CommitEvents writes the cached events of the height and resets the
// cache.
func (store *EventsStore) CommitEvents(height uint64) error {
	events := store.getEvents(height)
	data, err := cdc.MarshalBinaryBare(events)
	if err != nil {
		return err
	}

	store.cache.Clear()

	store.lock.Lock()
	defer store.lock.Unlock()

	return store.db.Set(getKeyForHeight(height), data)
}

func (store *EventsStore) LoadEvents(height uint64) Events {
	store.lock.RLock()
	data, err := store.db.Get(getKeyForHeight(height))
	store.lock.RUnlock()

	if err != nil || len(data) == 0 {
		return Events{}
	}

	var decoded Events
	if err := cdc.UnmarshalBinaryBare(data, &decoded); err != nil {
		panic(err)
	}

	return decoded
}

func (store *EventsStore) getEvents(height uint64) Events {
	store.cache.lock.RLock()
	cachedHeight := store.cache.height
	store.cache.lock.RUnlock()

	if cachedHeight == height {
		return store.cache.get()
	}

	events := store.LoadEvents(height)
	store.cache.set(height, events)

	return events
}

func getKeyForHeight(height uint64) []byte {
	var h = make([]byte, 8)
	binary.BigEndian.PutUint64(h, height)

	return h
}
