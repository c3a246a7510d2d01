// Package storage keeps the storefront cart and the orders waiting to be
// sent in a local JSON file, and talks to the storefront API.
package storage

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/atinyakov/fasogadget/internal/models"
)

// DefaultFile is the cart file used when none is configured.
const DefaultFile = "cart.json"

// LocalStorage is the persisted client state. The cart holds at most one
// line per product id and never a line with a non-positive quantity.
type LocalStorage struct {
	Cart     []CartItem     `json:"cart"`
	Pending  []models.Order `json:"pending"`
	// Rejected holds pending orders the server refused for good.
	Rejected []models.Order `json:"rejected,omitempty"`
	mu       sync.Mutex
	path     string
}

// NewLocalStorage returns an empty storage bound to path.
func NewLocalStorage(path string) *LocalStorage {
	if path == "" {
		path = DefaultFile
	}
	return &LocalStorage{path: path}
}

// Load reads the storage file. A missing file yields an empty cart.
func (ls *LocalStorage) Load() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	f, err := os.Open(ls.path)
	if err != nil {
		if os.IsNotExist(err) {
			ls.Cart = []CartItem{}
			ls.Pending = []models.Order{}
			return nil
		}
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(ls); err != nil {
		return err
	}
	ls.normalize()
	return nil
}

// normalize drops invalid lines and merges duplicates left by a hand-edited
// file.
func (ls *LocalStorage) normalize() {
	merged := make([]CartItem, 0, len(ls.Cart))
	index := make(map[string]int, len(ls.Cart))
	for _, it := range ls.Cart {
		if it.Quantity <= 0 || it.ID == "" {
			continue
		}
		if i, ok := index[it.ID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ID] = len(merged)
		merged = append(merged, it)
	}
	ls.Cart = merged
}

// Save writes the storage file.
func (ls *LocalStorage) Save() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	f, err := os.Create(ls.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(ls)
}

// Add puts qty units of p in the cart, merging with an existing line.
// Non-positive quantities are ignored.
func (ls *LocalStorage) Add(p models.Product, qty int64) {
	if qty <= 0 {
		return
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for i := range ls.Cart {
		if ls.Cart[i].ID == p.ID {
			ls.Cart[i].Quantity += qty
			return
		}
	}
	ls.Cart = append(ls.Cart, CartItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Quantity: qty,
	})
}

// Decrement lowers the quantity of product id by one and removes the line
// when it reaches zero. It reports whether the product was in the cart.
func (ls *LocalStorage) Decrement(id string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for i := range ls.Cart {
		if ls.Cart[i].ID != id {
			continue
		}
		ls.Cart[i].Quantity--
		if ls.Cart[i].Quantity <= 0 {
			ls.Cart = append(ls.Cart[:i], ls.Cart[i+1:]...)
		}
		return true
	}
	return false
}

// Remove deletes the line of product id.
func (ls *LocalStorage) Remove(id string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for i := range ls.Cart {
		if ls.Cart[i].ID == id {
			ls.Cart = append(ls.Cart[:i], ls.Cart[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns a copy of the cart lines.
func (ls *LocalStorage) Items() []CartItem {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]CartItem(nil), ls.Cart...)
}

// Total sums price*quantity over the cart.
func (ls *LocalStorage) Total() int64 {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	var total int64
	for _, it := range ls.Cart {
		total += it.Price * it.Quantity
	}
	return total
}

// Clear empties the cart.
func (ls *LocalStorage) Clear() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Cart = []CartItem{}
}

// Queue keeps an order that could not be sent.
func (ls *LocalStorage) Queue(o models.Order) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Pending = append(ls.Pending, o)
}

// PendingOrders returns a copy of the queued orders.
func (ls *LocalStorage) PendingOrders() []models.Order {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]models.Order(nil), ls.Pending...)
}

// Dequeue drops the queued order with the given number.
func (ls *LocalStorage) Dequeue(number string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i := range ls.Pending {
		if ls.Pending[i].Number == number {
			ls.Pending = append(ls.Pending[:i], ls.Pending[i+1:]...)
			return
		}
	}
}

// Park moves the queued order with the given number to Rejected so it is
// no longer retried.
func (ls *LocalStorage) Park(number string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i := range ls.Pending {
		if ls.Pending[i].Number == number {
			ls.Rejected = append(ls.Rejected, ls.Pending[i])
			ls.Pending = append(ls.Pending[:i], ls.Pending[i+1:]...)
			return
		}
	}
}

// RejectedOrders returns a copy of the parked orders.
func (ls *LocalStorage) RejectedOrders() []models.Order {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]models.Order(nil), ls.Rejected...)
}
