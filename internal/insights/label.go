package insights

import (
	"fmt"
	"strings"
)

// Label is the business category assigned to a cluster.
type Label int

const (
	NeedsReview Label = iota
	FlagshipTopPerformer
	FastMovingVolume
	PremiumNiche
	PotentialUnderexploited
)

var labelInfo = map[Label]struct {
	name, description string
}{
	FlagshipTopPerformer: {
		"Flagship/Top Performer",
		"Products selling and rated above the market average. This cluster performs best and should lead marketing and stock planning.",
	},
	FastMovingVolume: {
		"Fast-Moving / Volume",
		"Products priced below average that still sell above average. Suited to volume strategies, promotions and bundling.",
	},
	PremiumNiche: {
		"Premium/Niche",
		"Products priced above average with below-average sales. They target a specific segment with room for higher margins.",
	},
	PotentialUnderexploited: {
		"Potential/Underexploited",
		"Products rated above average whose sales have not caught up yet. Stronger promotion could unlock them.",
	},
	NeedsReview: {
		"Needs Review",
		"Products with no clear advantage in price, sales or rating. Review the offer or the strategy behind it.",
	},
}

// Labels lists every category in a stable order.
func Labels() []Label {
	return []Label{FlagshipTopPerformer, FastMovingVolume, PremiumNiche, PotentialUnderexploited, NeedsReview}
}

func (l Label) String() string {
	if info, ok := labelInfo[l]; ok {
		return info.name
	}
	return fmt.Sprintf("Label(%d)", int(l))
}

// Description explains what the category means for the business.
func (l Label) Description() string {
	return labelInfo[l].description
}

// ParseLabel resolves a category by its display name, case-insensitively.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels() {
		if strings.EqualFold(l.String(), strings.TrimSpace(s)) {
			return l, nil
		}
	}
	return NeedsReview, fmt.Errorf("unknown cluster label %q", s)
}

func (l Label) MarshalText() ([]byte, error) {
	if _, ok := labelInfo[l]; !ok {
		return nil, fmt.Errorf("invalid cluster label %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Label) UnmarshalText(b []byte) error {
	v, err := ParseLabel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
