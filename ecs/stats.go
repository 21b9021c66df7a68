package ecs

// StoreStats describes the current content of a store.
type StoreStats struct {
	EntityCount    int
	ComponentCount int
	Kinds          []KindStats
}

// KindStats describes one component table.
type KindStats struct {
	Kind  Kind
	Name  string
	Count int
}

// CollectStats counts live entities and the values held by every table.
func (s *Store[S]) CollectStats() StoreStats {
	stats := StoreStats{
		EntityCount: s.w.live.Len(),
		Kinds:       make([]KindStats, 0, len(s.w.active)),
	}
	for _, kind := range s.w.active {
		count := s.w.tables[kind].Len()
		stats.ComponentCount += count
		stats.Kinds = append(stats.Kinds, KindStats{
			Kind:  kind,
			Name:  s.w.registry.Name(kind),
			Count: count,
		})
	}
	return stats
}
