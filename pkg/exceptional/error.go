// Package exceptional captures a single application fault as a durable,
// deduplicatable, serializable record: a stable identity hash for rollup,
// redacted request context, and a lossless pair-list wire encoding.
//
// The package performs no I/O. Stores, transports and hosting adapters are
// external collaborators wired against the RequestSnapshot and ErrorStore
// capabilities.
package exceptional

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// CollectionFetchError is the sentinel entry name substituted for a
	// request collection that could not be enumerated.
	CollectionFetchError = "CollectionFetchError"

	// CustomDataSQL is the well-known CustomData key carrying the SQL
	// statement of a database fault.
	CustomDataSQL = "SQL"
)

// ErrNilFault is returned by New when no originating fault is supplied.
// A record cannot exist without one.
var ErrNilFault = errors.New("exceptional: fault is required")

// lazyValue is the two-state cache behind the derived request fields:
// computed once from the server variables on first read, or pinned
// permanently by an explicit setter.
type lazyValue struct {
	value    string
	resolved bool
}

// Error is one observed fault occurrence.
//
// A record is exclusively owned by its constructing call until explicitly
// shared; Clone is the required hand-off mechanism at that point. After
// construction the core never mutates it; DuplicateCount, IsDuplicate,
// IsProtected, DeletionDate and ID belong to the external store.
type Error struct {
	// ID is the storage surrogate key, assigned by the store. It is not part
	// of the record's identity and is never serialized to clients.
	ID int64

	// GUID is assigned exactly once, at construction, and never regenerated.
	GUID uuid.UUID

	ApplicationName string
	MachineName     string
	Type            string
	Source          string
	Message         string
	Detail          string
	CreationDate    time.Time
	StatusCode      *int

	// ErrorHash is the advisory rollup identity, nil iff Detail is empty.
	ErrorHash *int64

	DuplicateCount int
	IsDuplicate    bool
	IsProtected    bool
	DeletionDate   *time.Time

	// The five multi-valued request collections. Once populated they are
	// only read, never mutated, by the hasher and the codec.
	QueryString     Pairs
	Form            Pairs
	Cookies         Pairs
	RequestHeaders  Pairs
	ServerVariables Pairs

	// CustomData holds string metadata with unique, case-sensitive keys;
	// last write for a key wins.
	CustomData map[string]string

	fault           error
	rollupPerServer bool

	host       lazyValue
	url        lazyValue
	httpMethod lazyValue
	ipAddress  lazyValue
}

type options struct {
	snapshot RequestSnapshot
	filters  *FilterRegistry
	appName  string
	custom   map[string]string
}

// Option configures a single capture.
type Option func(*options)

// WithRequest attaches the request being served when the fault surfaced.
// The filter registry drives form/cookie redaction; nil skips redaction.
func WithRequest(snap RequestSnapshot, filters *FilterRegistry) Option {
	return func(o *options) {
		o.snapshot = snap
		o.filters = filters
	}
}

// WithApplicationName overrides the settings default for this capture.
func WithApplicationName(name string) Option {
	return func(o *options) { o.appName = name }
}

// WithCustomData merges caller-supplied metadata into CustomData.
func WithCustomData(data map[string]string) Option {
	return func(o *options) { o.custom = data }
}

// New builds the record for one fault. Message, Type and Source come from the
// innermost wrapped fault when settings.IsWrapper classifies the outer fault
// as a generic wrapper; Detail is always the full outer chain. The identity
// hash is computed last, after the machine name and request context are in
// place. No I/O is performed.
func New(fault error, settings *Settings, opts ...Option) (*Error, error) {
	if fault == nil {
		return nil, ErrNilFault
	}
	if settings == nil {
		settings = &Settings{}
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	appName := o.appName
	if appName == "" {
		appName = settings.DefaultApplicationName
	}

	e := &Error{
		GUID:            uuid.New(),
		ApplicationName: appName,
		MachineName:     settings.machineName(),
		CreationDate:    time.Now().UTC(),
		DuplicateCount:  1,
		CustomData:      make(map[string]string),
		fault:           fault,
		rollupPerServer: settings.RollupPerServer,
	}

	src := fault
	if settings.IsWrapper != nil && settings.IsWrapper(fault) {
		src = innermost(fault)
	}
	e.Message = src.Error()
	e.Type = fmt.Sprintf("%T", src)
	e.Source = sourceOf(src)
	e.Detail = renderDetail(fault)

	if sq, ok := fault.(interface{ SQL() string }); ok {
		e.CustomData[CustomDataSQL] = sq.SQL()
	}
	if dp, ok := fault.(interface{ ErrorData() map[string]string }); ok && settings.DataIncludePattern != nil {
		for k, v := range dp.ErrorData() {
			if settings.DataIncludePattern.MatchString(k) {
				e.CustomData[k] = v
			}
		}
	}
	for k, v := range o.custom {
		e.CustomData[k] = v
	}

	if o.snapshot != nil {
		e.extract(o.snapshot, o.filters)
	}

	e.ErrorHash = ErrorHashFor(e.Detail, e.MachineName, e.rollupPerServer)
	return e, nil
}

// Fault returns the originating fault. It is never serialized.
func (e *Error) Fault() error { return e.fault }

// AddCustomData records a metadata entry; the last write for a key wins.
func (e *Error) AddCustomData(key, value string) {
	if e.CustomData == nil {
		e.CustomData = make(map[string]string)
	}
	e.CustomData[key] = value
}

// RecomputeHash recalculates ErrorHash from the current Detail under the
// rollup policy the record was constructed with. The hash is otherwise never
// recomputed after construction.
func (e *Error) RecomputeHash() {
	e.ErrorHash = ErrorHashFor(e.Detail, e.MachineName, e.rollupPerServer)
}

// Host is the requested host, derived once from the server variables on
// first read.
func (e *Error) Host() string {
	return e.derive(&e.host, func() string { return e.ServerVariables.Get("HTTP_HOST") })
}

// SetHost pins the host, overriding derivation permanently.
func (e *Error) SetHost(v string) { e.host = lazyValue{value: v, resolved: true} }

// URL is the requested path, derived once from the server variables.
func (e *Error) URL() string {
	return e.derive(&e.url, func() string { return e.ServerVariables.Get("URL") })
}

// SetURL pins the URL, overriding derivation permanently.
func (e *Error) SetURL(v string) { e.url = lazyValue{value: v, resolved: true} }

// HTTPMethod is the request method, derived once from the server variables.
func (e *Error) HTTPMethod() string {
	return e.derive(&e.httpMethod, func() string { return e.ServerVariables.Get("REQUEST_METHOD") })
}

// SetHTTPMethod pins the method, overriding derivation permanently.
func (e *Error) SetHTTPMethod(v string) { e.httpMethod = lazyValue{value: v, resolved: true} }

// IPAddress is the remote client address, derived once from the server
// variables. The first forwarded-for hop takes precedence over REMOTE_ADDR.
func (e *Error) IPAddress() string {
	return e.derive(&e.ipAddress, func() string {
		if fwd := e.ServerVariables.Get("HTTP_X_FORWARDED_FOR"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
		return e.ServerVariables.Get("REMOTE_ADDR")
	})
}

// SetIPAddress pins the address, overriding derivation permanently.
func (e *Error) SetIPAddress(v string) { e.ipAddress = lazyValue{value: v, resolved: true} }

func (e *Error) derive(c *lazyValue, compute func() string) string {
	if !c.resolved {
		c.value = compute()
		c.resolved = true
	}
	return c.value
}

// Clone returns a structurally independent copy: every collection and the
// CustomData map are deep-copied, scalars are copied by value. Clone and
// original share no mutable storage, so mutating a queued record never
// affects the original throwing context.
func (e *Error) Clone() *Error {
	if e == nil {
		return nil
	}
	c := *e
	c.QueryString = e.QueryString.Clone()
	c.Form = e.Form.Clone()
	c.Cookies = e.Cookies.Clone()
	c.RequestHeaders = e.RequestHeaders.Clone()
	c.ServerVariables = e.ServerVariables.Clone()
	if e.CustomData != nil {
		c.CustomData = make(map[string]string, len(e.CustomData))
		for k, v := range e.CustomData {
			c.CustomData[k] = v
		}
	}
	if e.StatusCode != nil {
		v := *e.StatusCode
		c.StatusCode = &v
	}
	if e.ErrorHash != nil {
		v := *e.ErrorHash
		c.ErrorHash = &v
	}
	if e.DeletionDate != nil {
		v := *e.DeletionDate
		c.DeletionDate = &v
	}
	return &c
}

// innermost walks the Unwrap chain to the root cause.
func innermost(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// sourceOf reports the defining package of the fault's dynamic type, the
// closest analogue to an originating component name.
func sourceOf(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.PkgPath()
}

// renderDetail produces the complete textual representation of the fault:
// the outer message, every wrapped cause, and a stack trace when the fault
// carries one.
func renderDetail(fault error) string {
	var b strings.Builder
	b.WriteString(fault.Error())
	for err := errors.Unwrap(fault); err != nil; err = errors.Unwrap(err) {
		b.WriteString("\ncaused by: ")
		b.WriteString(err.Error())
	}
	var st interface{ Stack() []byte }
	if errors.As(fault, &st) {
		b.WriteString("\n")
		b.Write(st.Stack())
	}
	return b.String()
}
