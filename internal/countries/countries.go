// Package countries holds the fixed guess catalog and the random picker
// that models a player's answer choice and reaction time.
package countries

import (
	"math/rand"
	"sync"
	"time"
)

// Country is one guessable catalog entry.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Catalog is the fixed candidate set the harness draws guesses from.
var Catalog = []Country{
	{Code: "US", Name: "United States"},
	{Code: "GB", Name: "United Kingdom"},
	{Code: "FR", Name: "France"},
	{Code: "DE", Name: "Germany"},
	{Code: "JP", Name: "Japan"},
	{Code: "CN", Name: "China"},
	{Code: "BR", Name: "Brazil"},
	{Code: "AU", Name: "Australia"},
	{Code: "CA", Name: "Canada"},
	{Code: "IT", Name: "Italy"},
	{Code: "ES", Name: "Spain"},
	{Code: "MX", Name: "Mexico"},
	{Code: "IN", Name: "India"},
	{Code: "KR", Name: "South Korea"},
	{Code: "RU", Name: "Russia"},
	{Code: "ZA", Name: "South Africa"},
	{Code: "AR", Name: "Argentina"},
	{Code: "EG", Name: "Egypt"},
	{Code: "NG", Name: "Nigeria"},
	{Code: "SE", Name: "Sweden"},
}

// Picker draws catalog entries and reaction delays from a single random
// source. Draws are independent; repeats are expected. One picker is shared
// by both simulated clients, so access to the generator is serialized.
type Picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker builds a picker around rng. A nil rng gets a time-seeded source.
func NewPicker(rng *rand.Rand) *Picker {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Picker{rng: rng}
}

// Pick returns one catalog entry chosen uniformly at random. Safe for
// concurrent use.
func (p *Picker) Pick() Country {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Catalog[p.rng.Intn(len(Catalog))]
}

// Delay returns a duration uniform over the half-open interval [min, max).
// Safe for concurrent use.
func (p *Picker) Delay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + time.Duration(p.rng.Int63n(int64(max-min)))
}
