package domain

import "fmt"

// Tier is a cost/quality level of the hosted language model.
// Concrete provider model ids are resolved by the model transport only.
type Tier int

const (
	// Cheap is used for classification, relevance filtering and conversational replies.
	Cheap Tier = iota
	// Mid is used for answer synthesis.
	Mid
	// Deep is used for follow-up deep analysis.
	Deep
)

// Tiers lists every tier in ascending cost order.
var Tiers = []Tier{Cheap, Mid, Deep}

func (t Tier) String() string {
	switch t {
	case Cheap:
		return "cheap"
	case Mid:
		return "mid"
	case Deep:
		return "deep"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier converts a tier name into a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "cheap":
		return Cheap, nil
	case "mid":
		return Mid, nil
	case "deep":
		return Deep, nil
	default:
		return Cheap, fmt.Errorf("unknown tier %q: %w", s, ErrInvalidInput)
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	switch t {
	case Cheap, Mid, Deep:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("marshal %s: %w", t, ErrInvalidInput)
	}
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
