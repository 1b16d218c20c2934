package agents

import (
	"errors"
	"sort"

	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyRegistry = errors.New("agent registry is empty")
	ErrDuplicateID   = errors.New("agent id already registered")
)

// Registry mappa capability → agenti in ordine di registrazione.
// È costruito una volta allo startup e poi di sola lettura: le
// letture concorrenti non richiedono lock.
type Registry struct {
	byTag map[string][]Agent
	ids   map[string]Agent
}

// NewRegistry crea un registry dagli agenti dati. Un registry vuoto
// è un errore fatale di configurazione.
func NewRegistry(agentList ...Agent) (*Registry, error) {
	if len(agentList) == 0 {
		return nil, ErrEmptyRegistry
	}

	r := &Registry{
		byTag: make(map[string][]Agent),
		ids:   make(map[string]Agent, len(agentList)),
	}

	for _, a := range agentList {
		if _, exists := r.ids[a.ID()]; exists {
			return nil, ErrDuplicateID
		}
		r.ids[a.ID()] = a

		for _, tag := range a.Capabilities() {
			r.byTag[tag] = append(r.byTag[tag], a)
		}

		log.Info().
			Str("agent", a.ID()).
			Strs("capabilities", a.Capabilities()).
			Msg("Agent registered")
	}

	return r, nil
}

// Resolve restituisce gli agenti per una capability, nell'ordine di
// registrazione. Nessun match restituisce slice vuota.
func (r *Registry) Resolve(tag string) []Agent {
	return r.byTag[tag]
}

// Capabilities restituisce i tag registrati, ordinati
func (r *Registry) Capabilities() []string {
	tags := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Count restituisce il numero di agenti registrati
func (r *Registry) Count() int {
	return len(r.ids)
}
