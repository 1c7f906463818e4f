package recording

// Profile holds the timing of one structured speaking part.
type Profile struct {
	Part        int
	PrepSeconds int
	MaxSeconds  int
}

// Profiles maps speaking parts to their timing.
type Profiles struct {
	Part1   Profile
	Part2   Profile
	Part3   Profile
	Default Profile
}

// DefaultProfiles follows the IELTS speaking format: parts 1 and 3 are
// interview style, part 2 is a long turn with a minute to prepare.
func DefaultProfiles() Profiles {
	return Profiles{
		Part1:   Profile{Part: 1, PrepSeconds: 0, MaxSeconds: 300},
		Part2:   Profile{Part: 2, PrepSeconds: 60, MaxSeconds: 120},
		Part3:   Profile{Part: 3, PrepSeconds: 0, MaxSeconds: 300},
		Default: Profile{Part: 0, PrepSeconds: 0, MaxSeconds: 300},
	}
}

// ForPart returns the profile for a speaking part, or the default one.
func (p Profiles) ForPart(part int) Profile {
	switch part {
	case 1:
		return p.Part1
	case 2:
		return p.Part2
	case 3:
		return p.Part3
	default:
		return p.Default
	}
}
