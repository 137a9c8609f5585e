package energy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed facilities.toml
var defaultRegistry []byte

// UnitSpec is a unit's display configuration.
type UnitSpec struct {
	Code   string `toml:"code"`
	Height int    `toml:"height"`
}

// FacilitySpec describes one facility and its units in display order.
type FacilitySpec struct {
	Name   string     `toml:"name"`
	Region string     `toml:"region"`
	Units  []UnitSpec `toml:"unit"`
}

type registryFile struct {
	DefaultHeight int            `toml:"default_height"`
	Facilities    []FacilitySpec `toml:"facility"`
}

// Registry is the ordered set of facilities stripes knows how to draw, with
// per-unit band heights in pixels.
type Registry struct {
	defaultHeight int
	facilities    []FacilitySpec
	byName        map[string]int
}

// LoadRegistry reads a registry TOML file. An empty path loads the built-in
// registry of Australian coal facilities.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return ParseRegistry(defaultRegistry)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("energy: read registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes registry TOML.
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("energy: parse registry: %w", err)
	}
	if f.DefaultHeight <= 0 {
		f.DefaultHeight = 12
	}
	r := &Registry{
		defaultHeight: f.DefaultHeight,
		byName:        make(map[string]int, len(f.Facilities)),
	}
	for _, fac := range f.Facilities {
		if fac.Name == "" {
			return nil, fmt.Errorf("energy: registry facility without name")
		}
		key := strings.ToLower(fac.Name)
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("energy: registry lists %q twice", fac.Name)
		}
		for i := range fac.Units {
			if fac.Units[i].Height <= 0 {
				fac.Units[i].Height = f.DefaultHeight
			}
		}
		r.byName[key] = len(r.facilities)
		r.facilities = append(r.facilities, fac)
	}
	return r, nil
}

// Names returns facility names in display order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.facilities))
	for i, f := range r.facilities {
		names[i] = f.Name
	}
	return names
}

// Lookup finds a facility by case-insensitive name.
func (r *Registry) Lookup(name string) (FacilitySpec, bool) {
	i, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return FacilitySpec{}, false
	}
	return r.facilities[i], true
}

// UnitHeights maps unit code to band height for facility. Units present in
// units but missing from the registry get the default height, so a facility
// commissioning a new unit still renders.
func (r *Registry) UnitHeights(facility string, units []Unit) map[string]int {
	heights := make(map[string]int, len(units))
	spec, _ := r.Lookup(facility)
	for _, u := range spec.Units {
		heights[u.Code] = u.Height
	}
	for _, u := range units {
		if _, ok := heights[u.Code]; !ok {
			heights[u.Code] = r.defaultHeight
		}
	}
	return heights
}

// FacilityHeight is the sum of the registered unit heights of facility, or
// the default height when the facility is unknown.
func (r *Registry) FacilityHeight(facility string) int {
	spec, ok := r.Lookup(facility)
	if !ok || len(spec.Units) == 0 {
		return r.defaultHeight
	}
	h := 0
	for _, u := range spec.Units {
		h += u.Height
	}
	return h
}
