package params

// Key names a recognised setting. Unknown setting names never map to a Key.
type Key int

const (
	MoveMode Key = iota
	ColourCycle
	OutputColour
	BoundedColour
	BoundedAlpha
	ColouringMethod
	Iterations
	Zoom
	Constant

	numKeys
)

var keyNames = [numKeys]string{
	MoveMode:        "move_mode",
	ColourCycle:     "colour_cycle",
	OutputColour:    "output_colour",
	BoundedColour:   "bounded_colour",
	BoundedAlpha:    "bounded_alpha",
	ColouringMethod: "colouring_method",
	Iterations:      "iterations",
	Zoom:            "zoom",
	Constant:        "last_constant",
}

// String returns the persisted name of k.
func (k Key) String() string {
	if k < 0 || k >= numKeys {
		return "unknown"
	}
	return keyNames[k]
}

func ParseKey(name string) (Key, bool) {
	for k, n := range keyNames {
		if n == name {
			return Key(k), true
		}
	}
	return 0, false
}

func Keys() []Key {
	keys := make([]Key, numKeys)
	for i := range keys {
		keys[i] = Key(i)
	}
	return keys
}
