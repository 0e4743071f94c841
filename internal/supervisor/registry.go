package supervisor

import "github.com/fermenator/fermenator/internal/statusapi"

// ManagerStatuses implements statusapi.Registry against the currently
// running graph.
func (s *Supervisor) ManagerStatuses() []statusapi.ManagerStatus {
	s.mu.Lock()
	g := s.current
	s.mu.Unlock()
	if g == nil {
		return nil
	}

	statuses := make([]statusapi.ManagerStatus, 0, len(g.managers))
	for _, m := range g.managers {
		statuses = append(statuses, statusapi.ManagerStatus{
			Name:      m.Name(),
			Beer:      m.BeerName(),
			State:     m.State().String(),
			HeatRelay: m.HeatRelayName(),
			HeatOn:    m.HeatOn(),
			CoolRelay: m.CoolRelayName(),
			CoolOn:    m.CoolOn(),
		})
	}
	return statuses
}

// BeerStatus implements statusapi.Registry against the currently running
// graph, searching its Managers for one whose Beer matches name.
func (s *Supervisor) BeerStatus(name string) (statusapi.BeerStatus, bool) {
	s.mu.Lock()
	g := s.current
	s.mu.Unlock()
	if g == nil {
		return statusapi.BeerStatus{}, false
	}

	for _, m := range g.managers {
		if m.BeerName() != name {
			continue
		}
		d := m.LastDecision()
		return statusapi.BeerStatus{
			Name:            name,
			RequiresHeating: d.RequiresHeating,
			RequiresCooling: d.RequiresCooling,
		}, true
	}
	return statusapi.BeerStatus{}, false
}
