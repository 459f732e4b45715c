package normalize

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// Yellow is the yellow-cab variant (TPEP, Taxicab Passenger Enhancement Program).
var Yellow = tripload.Variant{
	Name:             "yellow",
	Token:            "yellow",
	Pickup:           "tpep_pickup_datetime",
	Dropoff:          "tpep_dropoff_datetime",
	CanonicalPickup:  tripload.DefaultPickupColumn,
	CanonicalDropoff: tripload.DefaultDropoffColumn,
}

// Green is the green-cab variant (LPEP, Livery Passenger Enhancement Program).
var Green = tripload.Variant{
	Name:             "green",
	Token:            "green",
	Pickup:           "lpep_pickup_datetime",
	Dropoff:          "lpep_dropoff_datetime",
	CanonicalPickup:  tripload.DefaultPickupColumn,
	CanonicalDropoff: tripload.DefaultDropoffColumn,
}

// Registry resolves dataset variants by name or by identifying token.
// It is built once at startup and only read afterwards.
type Registry struct {
	byName map[string]tripload.Variant
	order  []string // registration order, used for token matching
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]tripload.Variant)}
}

// DefaultRegistry returns a registry holding the yellow and green variants.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	// Built-ins are valid by construction.
	_ = r.Register(Yellow)
	_ = r.Register(Green)
	return r
}

// Register adds v, replacing a variant of the same name. Empty canonical
// names default to pickup_datetime / dropoff_datetime; an empty token
// defaults to the name.
func (r *Registry) Register(v tripload.Variant) error {
	if v.Name == "" {
		return fmt.Errorf("variant name is required: %w", tripload.ErrInvalidConfig)
	}
	if v.Token == "" {
		v.Token = v.Name
	}
	if v.CanonicalPickup == "" {
		v.CanonicalPickup = tripload.DefaultPickupColumn
	}
	if v.CanonicalDropoff == "" {
		v.CanonicalDropoff = tripload.DefaultDropoffColumn
	}
	if err := v.Validate(); err != nil {
		return err
	}

	if _, exists := r.byName[v.Name]; !exists {
		r.order = append(r.order, v.Name)
	}
	r.byName[v.Name] = v
	return nil
}

// Lookup returns the variant registered under name.
func (r *Registry) Lookup(name string) (tripload.Variant, error) {
	v, ok := r.byName[strings.ToLower(name)]
	if !ok {
		v, ok = r.byName[name]
	}
	if !ok {
		return tripload.Variant{}, fmt.Errorf("unknown variant %q (known: %s): %w",
			name, strings.Join(r.Names(), ", "), tripload.ErrInvalidConfig)
	}
	return v, nil
}

// Resolve picks the variant whose token occurs in identifier, typically a
// file name or URL. The file name (last path element, query dropped) is
// matched first; the whole identifier only when the file name matches no
// token. Matching is case-insensitive; when several tokens match, the
// longest token wins so that "fhvhv" is preferred over "fhv".
func (r *Registry) Resolve(identifier string) (tripload.Variant, error) {
	if v, ok := r.match(fileName(identifier)); ok {
		return v, nil
	}
	if v, ok := r.match(identifier); ok {
		return v, nil
	}
	return tripload.Variant{}, fmt.Errorf("cannot determine dataset variant of %q (tokens: %s): %w",
		identifier, strings.Join(r.tokens(), ", "), tripload.ErrInvalidConfig)
}

func (r *Registry) match(identifier string) (tripload.Variant, bool) {
	id := strings.ToLower(identifier)

	var best tripload.Variant
	found := false
	for _, name := range r.order {
		v := r.byName[name]
		token := strings.ToLower(v.Token)
		if !strings.Contains(id, token) {
			continue
		}
		if !found || len(token) > len(best.Token) {
			best = v
			found = true
		}
	}
	return best, found
}

// fileName returns the last element of a local path or of a URL's path.
func fileName(identifier string) string {
	p := identifier
	if u, err := url.Parse(identifier); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
	}
	return path.Base(strings.ReplaceAll(p, "\\", "/"))
}

// Names returns the registered variant names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variants returns the registered variants sorted by name.
func (r *Registry) Variants() []tripload.Variant {
	names := r.Names()
	out := make([]tripload.Variant, len(names))
	for i, n := range names {
		out[i] = r.byName[n]
	}
	return out
}

func (r *Registry) tokens() []string {
	tokens := make([]string, 0, len(r.order))
	for _, name := range r.order {
		tokens = append(tokens, r.byName[name].Token)
	}
	return tokens
}
