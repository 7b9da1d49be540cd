package asset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe registry of the tokens of one chain.
type Registry struct {
	chainID   uint64
	byAddress map[common.Address]*Asset
	bySymbol  map[string]*Asset
	mu        sync.RWMutex
}

// NewRegistry creates a new empty asset registry for chainID.
func NewRegistry(chainID uint64) *Registry {
	return &Registry{
		chainID:   chainID,
		byAddress: make(map[common.Address]*Asset),
		bySymbol:  make(map[string]*Asset),
	}
}

// ChainID returns the chain served by this registry.
func (r *Registry) ChainID() uint64 { return r.chainID }

// Register adds an asset. It returns an error on chain mismatch or a
// duplicate symbol or address.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return ErrNilAsset
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ChainID() != r.chainID {
		return fmt.Errorf("asset: %s is on chain %d, registry serves %d", a.Symbol(), a.ChainID(), r.chainID)
	}
	if _, exists := r.byAddress[a.Address()]; exists {
		return fmt.Errorf("asset: %s already registered", a.ID())
	}
	if _, exists := r.bySymbol[a.Symbol()]; exists {
		return fmt.Errorf("asset: symbol %s already registered", a.Symbol())
	}

	r.byAddress[a.Address()] = a
	r.bySymbol[a.Symbol()] = a
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(a *Asset) {
	if err := r.Register(a); err != nil {
		panic(err)
	}
}

// BySymbol retrieves an asset by ticker.
func (r *Registry) BySymbol(symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.bySymbol[symbol]
	return a, ok
}

// MustBySymbol is BySymbol that panics when the symbol is unknown.
func (r *Registry) MustBySymbol(symbol string) *Asset {
	a, ok := r.BySymbol(symbol)
	if !ok {
		panic("asset: unknown symbol " + symbol)
	}
	return a
}

// ByAddress retrieves an asset by contract address.
func (r *Registry) ByAddress(addr common.Address) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byAddress[addr]
	return a, ok
}

// Stables returns all stable assets ordered by symbol.
func (r *Registry) Stables() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Asset
	for _, a := range r.bySymbol {
		if a.IsStable() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol() < out[j].Symbol() })
	return out
}

// WrappedNative returns the chain's wrapped native token, if registered.
func (r *Registry) WrappedNative() (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.bySymbol {
		if a.IsWrappedNative() {
			return a, true
		}
	}
	return nil, false
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddress)
}
