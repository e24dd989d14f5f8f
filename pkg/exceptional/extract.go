package exceptional

import "strings"

// extract reads the request snapshot into the record's five collections and
// status code, then applies redaction. A failure to read one collection never
// aborts capture of the rest: the failed collection degrades to a single
// CollectionFetchError sentinel entry carrying the read error's message.
func (e *Error) extract(snap RequestSnapshot, filters *FilterRegistry) {
	if status := snap.StatusCode(); status != 0 {
		e.StatusCode = &status
	}

	e.QueryString = fetch(snap.QueryString)
	e.Form = fetch(snap.Form)
	e.Cookies = fetch(snap.Cookies)
	e.RequestHeaders = stripCookieHeader(fetch(snap.Headers))
	e.ServerVariables = fetch(snap.ServerVariables)

	if filters != nil {
		redact(e.Form, filters.FormReplacement)
		redact(e.Cookies, filters.CookieReplacement)
	}
}

// fetch enumerates one collection, cloning the result so later redaction
// cannot reach back into the snapshot's storage.
func fetch(read func() (Pairs, error)) Pairs {
	p, err := read()
	if err != nil {
		return Pairs{{Name: CollectionFetchError, Value: err.Error()}}
	}
	return p.Clone()
}

// redact replaces the value of every entry whose name has a configured
// replacement. Entries absent from the filter map pass through untouched;
// no entry is ever invented.
func redact(p Pairs, replacement func(string) (string, bool)) {
	for i := range p {
		if r, ok := replacement(p[i].Name); ok {
			p[i].Value = r
		}
	}
}

// stripCookieHeader drops the Cookie header under case-insensitive
// comparison. Cookies are represented in their own collection.
func stripCookieHeader(p Pairs) Pairs {
	if len(p) == 0 {
		return p
	}
	out := make(Pairs, 0, len(p))
	for _, nv := range p {
		if strings.EqualFold(nv.Name, "Cookie") {
			continue
		}
		out = append(out, nv)
	}
	return out
}
