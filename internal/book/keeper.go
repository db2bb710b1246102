package book

import (
	"sync"

	"github.com/alanyoungcy/flipfeed/internal/domain"
)

// Keeper holds the latest order book per trading pair. Snapshots are replaced
// wholesale; readers always see a complete, internally consistent book.
type Keeper struct {
	mu    sync.RWMutex
	books map[string]*domain.OrderBook
}

// NewKeeper creates an empty Keeper.
func NewKeeper() *Keeper {
	return &Keeper{books: make(map[string]*domain.OrderBook)}
}

// Put stores the book as the current snapshot for its pair.
func (k *Keeper) Put(ob domain.OrderBook) {
	k.mu.Lock()
	k.books[ob.Pair] = &ob
	k.mu.Unlock()
}

// Get returns the current snapshot for the pair, or false when no snapshot
// has been stored yet.
func (k *Keeper) Get(pair string) (domain.OrderBook, bool) {
	k.mu.RLock()
	ob, ok := k.books[pair]
	k.mu.RUnlock()
	if !ok {
		return domain.OrderBook{}, false
	}
	return *ob, true
}

// Pairs lists the pairs that currently have a snapshot.
func (k *Keeper) Pairs() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pairs := make([]string, 0, len(k.books))
	for p := range k.books {
		pairs = append(pairs, p)
	}
	return pairs
}
