package order

import "sync"

// Store owns the session's Order/Trade/Position tables. All list methods
// return copies so readers never observe in-place mutation.
type Store struct {
	mu        sync.RWMutex
	orders    map[string]Order // keyed by client order id
	trades    []Trade
	positions map[string]Position
}

func NewStore() *Store {
	return &Store{
		orders:    make(map[string]Order),
		positions: make(map[string]Position),
	}
}

func (s *Store) SetOrder(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ClientOrderID] = o
}

func (s *Store) Order(clientOrderID string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[clientOrderID]
	return o, ok
}

// Orders returns all orders, optionally filtered by instrument.
func (s *Store) Orders(instrument string) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		if instrument != "" && o.Instrument != instrument {
			continue
		}
		res = append(res, o)
	}
	return res
}

// ActiveOrders returns orders the venue may still act on.
func (s *Store) ActiveOrders(sm *StateMachine) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Order
	for _, o := range s.orders {
		if sm.IsActive(o.Status) {
			res = append(res, o)
		}
	}
	return res
}

func (s *Store) AppendTrade(t Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
}

func (s *Store) Trades(instrument string) []Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Trade, 0, len(s.trades))
	for _, t := range s.trades {
		if instrument != "" && t.Instrument != instrument {
			continue
		}
		res = append(res, t)
	}
	return res
}

// ReplacePositions swaps the position table wholesale; positions are always
// recomputed from venue state.
func (s *Store) ReplacePositions(ps []Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = make(map[string]Position, len(ps))
	for _, p := range ps {
		s.positions[p.Instrument] = p
	}
}

func (s *Store) Positions(instrument string) []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		if instrument != "" && p.Instrument != instrument {
			continue
		}
		res = append(res, p)
	}
	return res
}
