package telemetry

import "github.com/pthm-cable/evol/components"

// LifetimeStats tracks per-instance statistics over one episode.
type LifetimeStats struct {
	Kind       components.Kind
	BirthTick  int32
	ParentID   uint32 // 0 for spawned instances
	Generation int

	Children int
	PeakLife float32
}

// LifetimeTracker manages per-instance episode statistics, keyed by instance id.
// Pooled instances keep their id across episodes, so an entry is replaced
// when the instance is registered again.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register starts tracking a new episode of an instance.
func (lt *LifetimeTracker) Register(id uint32, kind components.Kind, birthTick int32, parentID uint32, generation int) {
	lt.stats[id] = &LifetimeStats{
		Kind:       kind,
		BirthTick:  birthTick,
		ParentID:   parentID,
		Generation: generation,
	}
}

// Get returns the lifetime stats for an instance, or nil if not found.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes an instance's stats and returns them.
func (lt *LifetimeTracker) Remove(id uint32) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// RecordChild increments children count.
func (lt *LifetimeTracker) RecordChild(parentID uint32) {
	if s := lt.stats[parentID]; s != nil {
		s.Children++
	}
}

// UpdateLife tracks peak life.
func (lt *LifetimeTracker) UpdateLife(id uint32, life float32) {
	if s := lt.stats[id]; s != nil && life > s.PeakLife {
		s.PeakLife = life
	}
}

// Count returns the number of tracked instances.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// EpisodeRecord is one ended episode, written to episodes.csv.
type EpisodeRecord struct {
	Tick          int32   `csv:"tick"`
	ID            uint32  `csv:"id"`
	Species       string  `csv:"species"`
	Reason        string  `csv:"reason"`
	ParentID      uint32  `csv:"parent_id"`
	Generation    int     `csv:"generation"`
	Steps         int32   `csv:"steps"`
	SurvivalSec   float32 `csv:"survival_sec"`
	Reward        float32 `csv:"reward"`
	Eats          int     `csv:"eats"`
	Reproductions int     `csv:"reproductions"`
	Children      int     `csv:"children"`
	PeakLife      float32 `csv:"peak_life"`
	FinalLife     float32 `csv:"final_life"`
	Speed         float32 `csv:"speed"`
}

// Close removes an instance's stats and completes rec with them. rec must
// already carry Tick and the episode counters. ok is false for untracked ids.
func (lt *LifetimeTracker) Close(rec *EpisodeRecord, dt float32) bool {
	s := lt.Remove(rec.ID)
	if s == nil {
		return false
	}
	rec.ParentID = s.ParentID
	rec.Generation = s.Generation
	rec.Children = s.Children
	rec.PeakLife = max(s.PeakLife, rec.FinalLife)
	rec.SurvivalSec = float32(rec.Tick-s.BirthTick) * dt
	return true
}
