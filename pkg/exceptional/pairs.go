package exceptional

// NameValue is a single entry in an ordered multi-valued collection.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Pairs is an ordered sequence of name/value entries. Names are not required
// to be unique (two query parameters may share a name), which is why these
// collections are never represented as maps.
type Pairs []NameValue

// Get returns the value of the first entry named name, or "" if none exists.
func (p Pairs) Get(name string) string {
	for _, nv := range p {
		if nv.Name == name {
			return nv.Value
		}
	}
	return ""
}

// Values returns every value recorded under name, in insertion order.
// Returns nil when the name is absent.
func (p Pairs) Values(name string) []string {
	var out []string
	for _, nv := range p {
		if nv.Name == name {
			out = append(out, nv.Value)
		}
	}
	return out
}

// ToMap flattens the collection to a name→value map. On duplicate names the
// last value wins; callers that need full fidelity iterate the pairs instead.
func (p Pairs) ToMap() map[string]string {
	if p == nil {
		return nil
	}
	m := make(map[string]string, len(p))
	for _, nv := range p {
		m[nv.Name] = nv.Value
	}
	return m
}

// Clone returns an independent copy sharing no storage with the original.
func (p Pairs) Clone() Pairs {
	if p == nil {
		return nil
	}
	out := make(Pairs, len(p))
	copy(out, p)
	return out
}
