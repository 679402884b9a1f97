package ir

// LocalName is one LocalVariableTable entry: the declared name and source
// type of a slot over the pc range [StartPC, StartPC+Length).
type LocalName struct {
	Slot    int
	Name    string
	Type    string
	StartPC int
	Length  int
}

type LocalVariableTable []LocalName

func (t LocalVariableTable) Len() int { return len(t) }

// NameFor returns the first declared name of slot, or "".
func (t LocalVariableTable) NameFor(slot int) string {
	for _, e := range t {
		if e.Slot == slot {
			return e.Name
		}
	}
	return ""
}

// Lookup finds the entry for slot whose scope covers pc. Stores happen one
// instruction before the scope opens, so an entry starting at next also
// matches.
func (t LocalVariableTable) Lookup(slot, pc, next int) (LocalName, bool) {
	for _, e := range t {
		if e.Slot != slot {
			continue
		}
		if (pc >= e.StartPC && pc < e.StartPC+e.Length) || e.StartPC == next {
			return e, true
		}
	}
	return LocalName{}, false
}
