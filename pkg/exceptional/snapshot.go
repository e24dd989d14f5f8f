package exceptional

// RequestSnapshot is the read-only view of the request being served when a
// fault surfaced. Hosting environments provide thin adapters (see exchttp);
// the core never touches a concrete request type.
//
// Each enumeration may fail independently: a malformed header block must not
// prevent capture of the form or the cookies. Extraction recovers a failed
// collection as a single CollectionFetchError sentinel entry.
type RequestSnapshot interface {
	// StatusCode is the response status at the moment of capture, which may
	// differ from the status finally written. Zero means not yet known.
	StatusCode() int

	QueryString() (Pairs, error)
	Form() (Pairs, error)
	Cookies() (Pairs, error)
	Headers() (Pairs, error)
	ServerVariables() (Pairs, error)
}

// MemorySnapshot is a snapshot assembled from plain values, for captures that
// happen outside an HTTP host (background workers, queue consumers) and for
// tests. The zero value is an empty request.
type MemorySnapshot struct {
	Status       int
	Query        Pairs
	FormValues   Pairs
	CookieValues Pairs
	HeaderValues Pairs
	Vars         Pairs
}

var _ RequestSnapshot = (*MemorySnapshot)(nil)

func (s *MemorySnapshot) StatusCode() int { return s.Status }

func (s *MemorySnapshot) QueryString() (Pairs, error) { return s.Query, nil }

func (s *MemorySnapshot) Form() (Pairs, error) { return s.FormValues, nil }

func (s *MemorySnapshot) Cookies() (Pairs, error) { return s.CookieValues, nil }

func (s *MemorySnapshot) Headers() (Pairs, error) { return s.HeaderValues, nil }

func (s *MemorySnapshot) ServerVariables() (Pairs, error) { return s.Vars, nil }
