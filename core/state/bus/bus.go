package bus

type Bus struct {
	registry    Registry
	ledger      Ledger
	accumulator Accumulator
	guardian    Guardian
	checker     Checker
	tokens      Tokens
	events      Events
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SetRegistry(registry Registry) {
	b.registry = registry
}

func (b *Bus) Registry() Registry {
	return b.registry
}

func (b *Bus) SetLedger(ledger Ledger) {
	b.ledger = ledger
}

func (b *Bus) Ledger() Ledger {
	return b.ledger
}

func (b *Bus) SetAccumulator(accumulator Accumulator) {
	b.accumulator = accumulator
}

func (b *Bus) Accumulator() Accumulator {
	return b.accumulator
}

func (b *Bus) SetGuardian(guardian Guardian) {
	b.guardian = guardian
}

func (b *Bus) Guardian() Guardian {
	return b.guardian
}

func (b *Bus) SetChecker(checker Checker) {
	b.checker = checker
}

func (b *Bus) Checker() Checker {
	return b.checker
}

func (b *Bus) SetTokens(tokens Tokens) {
	b.tokens = tokens
}

func (b *Bus) Tokens() Tokens {
	return b.tokens
}

func (b *Bus) SetEvents(events Events) {
	b.events = events
}

func (b *Bus) Events() Events {
	if b.events == nil {
		return nopEvents{}
	}
	return b.events
}
