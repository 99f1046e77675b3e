package upnpigd

import (
	"math/rand/v2"
	"sync"
)

const (
	DefaultAnyPortAttempts = 10
	// The ephemeral range; well-known and registered ports are never proposed.
	DefaultAnyPortMin = 32768
	DefaultAnyPortMax = 65535
)

// AnyPortPolicy bounds the client-side fallback of AddAnyPort.
type AnyPortPolicy struct {
	Attempts int
	MinPort  uint16
	MaxPort  uint16
}

func DefaultAnyPortPolicy() AnyPortPolicy {
	return AnyPortPolicy{
		Attempts: DefaultAnyPortAttempts,
		MinPort:  DefaultAnyPortMin,
		MaxPort:  DefaultAnyPortMax,
	}
}

func (p AnyPortPolicy) normalize() AnyPortPolicy {
	d := DefaultAnyPortPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.MinPort == 0 {
		p.MinPort = d.MinPort
	}
	if p.MaxPort == 0 {
		p.MaxPort = d.MaxPort
	}
	if p.MaxPort < p.MinPort {
		p.MinPort, p.MaxPort = p.MaxPort, p.MinPort
	}
	return p
}

// PortSource proposes candidate external ports in [min, max].
type PortSource interface {
	Port(min, max uint16) uint16
}

type randomSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomPortSource returns a PortSource safe for concurrent use. The same
// seeds yield the same sequence.
func NewRandomPortSource(seed1, seed2 uint64) PortSource {
	return &randomSource{r: rand.New(rand.NewPCG(seed1, seed2))}
}

func (s *randomSource) Port(min, max uint16) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + uint16(s.r.IntN(int(max-min)+1))
}
