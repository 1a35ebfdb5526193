package sector

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ErrPersist marks a failure to write the neighborhood map or the discovered
// zones file. The in-memory state keeps the mutation and the write is retried
// on the next mutation or Flush.
var ErrPersist = errors.New("neighborhood store persistence failed")

// Store owns the NeighborhoodMap and DiscoveredZones files. All mutations are
// serialized by a single mutex; each write re-reads the file first and merges
// entries appended by other processes so concurrent writers do not lose updates.
type Store struct {
	mapPath   string
	zonesPath string

	mu         sync.RWMutex
	nbMap      Map
	zones      []string
	mapDirty   bool
	zonesDirty bool
}

func NewStore(mapPath, zonesPath string) *Store {
	return &Store{mapPath: mapPath, zonesPath: zonesPath}
}

// NewMemoryStore returns a store that never touches disk.
func NewMemoryStore(m Map) *Store {
	return &Store{nbMap: m.Clone()}
}

func (s *Store) Load() error {
	nbMap, err := readMap(s.mapPath)
	if err != nil {
		return err
	}
	zones, err := readZones(s.zonesPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nbMap = nbMap
	s.zones = zones

	slog.Debug("Neighborhood store loaded", "categories", len(nbMap.Categories), "discovered", len(zones))
	return nil
}

// Snapshot returns a deep copy of the current map.
func (s *Store) Snapshot() Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nbMap.Clone()
}

func (s *Store) Discovered() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.zones...)
}

// AddVariant appends variant to the category unless an equivalent variant is
// already present. It reports whether the map changed.
func (s *Store) AddVariant(category, variant string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.nbMap.index(category)
	if idx < 0 {
		return false, fmt.Errorf("unknown category %q", category)
	}

	added := !hasVariant(s.nbMap.Categories[idx].Variants, variant)
	if added {
		s.nbMap.Categories[idx].Variants = append(s.nbMap.Categories[idx].Variants, variant)
		s.mapDirty = true
	}

	return added, s.flushLocked()
}

// AddDiscovered records an unresolved zone, deduplicated by its cleaned form.
func (s *Store) AddDiscovered(zone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := !containsClean(s.zones, zone)
	if added {
		s.zones = append(s.zones, zone)
		s.zonesDirty = true
	}

	return added, s.flushLocked()
}

// RemoveDiscovered drops the zones matching any entry of resolved by cleaned
// form. Zones added since the caller read the list, in memory or on disk, are
// kept.
func (s *Store) RemoveDiscovered(resolved []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(resolved) == 0 {
		return s.flushLocked()
	}

	if s.zonesPath != "" {
		if disk, err := readZones(s.zonesPath); err == nil {
			for _, z := range disk {
				if !containsClean(s.zones, z) {
					s.zones = append(s.zones, z)
				}
			}
		}
	}

	kept := make([]string, 0, len(s.zones))
	for _, z := range s.zones {
		if !containsClean(resolved, z) {
			kept = append(kept, z)
		}
	}
	s.zones = kept

	if s.zonesPath != "" {
		if err := writeJSON(s.zonesPath, s.zones); err != nil {
			s.zonesDirty = true
			return fmt.Errorf("%w: %v", ErrPersist, err)
		}
	}
	s.zonesDirty = false
	return s.flushLocked()
}

func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	var errs []error

	if s.mapDirty && s.mapPath != "" {
		if disk, err := readMap(s.mapPath); err == nil {
			s.nbMap = mergeMap(s.nbMap, disk)
		}
		if err := writeJSON(s.mapPath, s.nbMap); err != nil {
			errs = append(errs, err)
		} else {
			s.mapDirty = false
		}
	} else if s.mapPath == "" {
		s.mapDirty = false
	}

	if s.zonesDirty && s.zonesPath != "" {
		if disk, err := readZones(s.zonesPath); err == nil {
			for _, z := range disk {
				if !containsClean(s.zones, z) {
					s.zones = append(s.zones, z)
				}
			}
		}
		if err := writeJSON(s.zonesPath, s.zones); err != nil {
			errs = append(errs, err)
		} else {
			s.zonesDirty = false
		}
	} else if s.zonesPath == "" {
		s.zonesDirty = false
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrPersist, errors.Join(errs...))
	}
	return nil
}

func mergeMap(mem, disk Map) Map {
	for _, dc := range disk.Categories {
		idx := mem.index(dc.Name)
		if idx < 0 {
			mem.Categories = append(mem.Categories, Category{Name: dc.Name, Variants: append([]string(nil), dc.Variants...)})
			continue
		}
		for _, v := range dc.Variants {
			if !hasVariant(mem.Categories[idx].Variants, v) {
				mem.Categories[idx].Variants = append(mem.Categories[idx].Variants, v)
			}
		}
	}
	return mem
}

func hasVariant(variants []string, v string) bool {
	for _, existing := range variants {
		if existing == v {
			return true
		}
	}
	return containsClean(variants, v)
}

func containsClean(list []string, v string) bool {
	cleaned := Clean(v)
	for _, existing := range list {
		if Clean(existing) == cleaned {
			return true
		}
	}
	return false
}

func readMap(path string) (Map, error) {
	var m Map
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("failed to read neighborhood map: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse neighborhood map %s: %w", path, err)
	}
	return m, nil
}

func readZones(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read discovered zones: %w", err)
	}
	var zones []string
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, fmt.Errorf("failed to parse discovered zones %s: %w", path, err)
	}
	return zones, nil
}

// writeJSON replaces path atomically with the indented encoding of v.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
