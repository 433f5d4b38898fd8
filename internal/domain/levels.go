package domain

type InstrumentKey string

const (
	MinLevel     = 0
	MaxLevel     = 10
	DefaultLevel = 5
)

// DefaultInstruments is the set seeded into every new room. Clients may
// reference keys outside this set; they are adopted at DefaultLevel on
// first touch and never removed.
var DefaultInstruments = []InstrumentKey{"vocals", "guitar", "bass", "keys", "drums"}

// Levels maps instrument keys to their current monitor level.
type Levels map[InstrumentKey]int

func NewLevels() Levels {
	l := make(Levels, len(DefaultInstruments))
	for _, k := range DefaultInstruments {
		l[k] = DefaultLevel
	}
	return l
}

func (l Levels) Clone() Levels {
	out := make(Levels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Touch ensures a key exists, adopting it at DefaultLevel if unknown.
func (l Levels) Touch(k InstrumentKey) {
	if _, ok := l[k]; !ok {
		l[k] = DefaultLevel
	}
}

// Adjust applies delta to a key and clamps the result. Returns the new value.
func (l Levels) Adjust(k InstrumentKey, delta int) int {
	l.Touch(k)
	v := ClampLevel(l[k] + delta)
	l[k] = v
	return v
}

// Reset restores every known key to DefaultLevel. Keys are kept, not removed.
func (l Levels) Reset() {
	for k := range l {
		l[k] = DefaultLevel
	}
}

func ClampLevel(v int) int {
	if v < MinLevel {
		return MinLevel
	}
	if v > MaxLevel {
		return MaxLevel
	}
	return v
}
