package tripload

import "fmt"

// Variant is a dataset flavor: which raw columns hold the pickup and
// dropoff timestamps, and the canonical names they are loaded under.
type Variant struct {
	Name  string
	Token string // substring of a source name that selects this variant

	Pickup  string // raw pickup column, e.g. tpep_pickup_datetime
	Dropoff string // raw dropoff column

	CanonicalPickup  string
	CanonicalDropoff string
}

// IsZero reports whether v is the unresolved zero value.
func (v Variant) IsZero() bool {
	return v.Name == "" && v.Pickup == "" && v.Dropoff == ""
}

// Validate checks that v names both raw columns and both canonical columns.
func (v Variant) Validate() error {
	if v.IsZero() {
		return fmt.Errorf("dataset variant is not set: %w", ErrInvalidConfig)
	}
	if v.Pickup == "" || v.Dropoff == "" {
		return fmt.Errorf("variant %q must name both timestamp columns: %w", v.Name, ErrInvalidConfig)
	}
	if v.CanonicalPickup == "" || v.CanonicalDropoff == "" {
		return fmt.Errorf("variant %q must name both canonical columns: %w", v.Name, ErrInvalidConfig)
	}
	if v.CanonicalPickup == v.CanonicalDropoff {
		return fmt.Errorf("variant %q maps pickup and dropoff onto the same column: %w", v.Name, ErrInvalidConfig)
	}
	return nil
}

// Mapping returns raw → canonical column names.
func (v Variant) Mapping() map[string]string {
	return map[string]string{
		v.Pickup:  v.CanonicalPickup,
		v.Dropoff: v.CanonicalDropoff,
	}
}
