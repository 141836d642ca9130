package store

type EventKind string

const (
	EventReady          EventKind = "ready"
	EventRegistered     EventKind = "registered"
	EventSignedIn       EventKind = "signed_in"
	EventSignedOut      EventKind = "signed_out"
	EventExpenseAdded   EventKind = "expense_added"
	EventProfileUpdated EventKind = "profile_updated"
)

// Event tells subscribers that the store changed.
type Event struct {
	Kind   EventKind
	UserID string
}

// Subscribe returns a channel of store events and a function that ends the
// subscription. Delivery never blocks the store: when the buffer is full the
// event is dropped for that subscriber.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (s *Store) emit(e Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
