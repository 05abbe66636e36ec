package generation

import (
	"encoding/binary"
	"hash/fnv"
	"time"
)

// Sampling defaults
const (
	DefaultBaseTemperature = 0.6
	DefaultTemperatureStep = 0.04
	DefaultTopP            = 0.9
	DefaultMaxOutputTokens = 1200

	// temperature cycles every temperatureCycle indices
	temperatureCycle = 10
)

// DefaultMoods are the moods mixed into song requests
var DefaultMoods = []string{"happy", "sad", "energetic", "calm", "mysterious"}

// Temperature returns the sampling temperature for the item at index.
// It is a pure function so a dataset can be regenerated with the same spread.
func Temperature(base, step float64, index int) float64 {
	cycle := index % temperatureCycle
	if cycle < 0 {
		cycle += temperatureCycle
	}
	return base + float64(cycle)*step
}

// MoodPicker assigns moods from a seed. The mood of an item depends only on
// the seed, its category and its index, so a seeded run is reproducible no
// matter how many workers schedule the items. It is safe for concurrent use.
type MoodPicker struct {
	seed  int64
	moods []string
}

// NewMoodPicker creates a picker over moods. A zero seed seeds from the clock.
func NewMoodPicker(seed int64, moods []string) *MoodPicker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if len(moods) == 0 {
		moods = DefaultMoods
	}
	return &MoodPicker{
		seed:  seed,
		moods: append([]string(nil), moods...),
	}
}

// Pick returns the mood for the item at index within category key
func (p *MoodPicker) Pick(key string, index int) string {
	var buf [8]byte
	h := fnv.New64a()
	binary.BigEndian.PutUint64(buf[:], uint64(p.seed))
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(key))
	binary.BigEndian.PutUint64(buf[:], uint64(index))
	_, _ = h.Write(buf[:])
	return p.moods[h.Sum64()%uint64(len(p.moods))]
}
