package provider

import "github.com/kursadbilgin/renewal-reminder/internal/domain"

// Registry maps channels to their configured sender. A channel without a
// sender is treated as disabled by the dispatcher.
type Registry struct {
	senders map[domain.Channel]Sender
}

func NewRegistry(senders ...Sender) *Registry {
	r := &Registry{senders: make(map[domain.Channel]Sender, len(senders))}
	for _, s := range senders {
		if s == nil {
			continue
		}
		r.senders[s.Channel()] = s
	}
	return r
}

func (r *Registry) Sender(channel domain.Channel) (Sender, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.senders[channel]
	return s, ok
}

// Channels lists configured channels in the canonical channel order.
func (r *Registry) Channels() []domain.Channel {
	out := make([]domain.Channel, 0, len(domain.Channels()))
	for _, ch := range domain.Channels() {
		if _, ok := r.Sender(ch); ok {
			out = append(out, ch)
		}
	}
	return out
}
