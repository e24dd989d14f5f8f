package exceptional

import "sync"

// FilterRegistry holds the form-field and cookie redaction maps consulted
// during context extraction. It is populated once at startup (typically from
// internal/config) and read concurrently afterwards by every in-flight
// capture, so all access goes through the lock.
type FilterRegistry struct {
	mu      sync.RWMutex
	form    map[string]string
	cookies map[string]string
}

// NewFilterRegistry returns an empty registry.
func NewFilterRegistry() *FilterRegistry {
	return &FilterRegistry{
		form:    make(map[string]string),
		cookies: make(map[string]string),
	}
}

// SetFormFilter registers a replacement for a form field name. An empty
// replacement blanks the value.
func (f *FilterRegistry) SetFormFilter(name, replacement string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.form[name] = replacement
}

// SetCookieFilter registers a replacement for a cookie name.
func (f *FilterRegistry) SetCookieFilter(name, replacement string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies[name] = replacement
}

// FormReplacement reports the configured replacement for a form field name.
func (f *FilterRegistry) FormReplacement(name string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.form[name]
	return r, ok
}

// CookieReplacement reports the configured replacement for a cookie name.
func (f *FilterRegistry) CookieReplacement(name string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.cookies[name]
	return r, ok
}
