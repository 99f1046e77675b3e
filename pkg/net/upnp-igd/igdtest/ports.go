package igdtest

import "sync"

// Ports proposes a fixed sequence of ports, repeating the last one once the
// sequence is used up. It ignores the requested range.
type Ports struct {
	mu    sync.Mutex
	ports []uint16
	drawn int
}

func NewPorts(ports ...uint16) *Ports {
	return &Ports{ports: ports}
}

func (p *Ports) Port(_, _ uint16) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.ports) == 0 {
		return 0
	}
	i := min(p.drawn, len(p.ports)-1)
	p.drawn++
	return p.ports[i]
}

// Drawn reports how many ports have been proposed.
func (p *Ports) Drawn() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drawn
}
