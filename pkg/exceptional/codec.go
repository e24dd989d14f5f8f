package exceptional

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fastjson"
)

// ErrMalformedRecord wraps any decode failure. Decoding is all-or-nothing:
// malformed input never partially populates a record.
var ErrMalformedRecord = errors.New("exceptional: malformed record")

// fullRecord is the lossless wire view. The five collections are encoded as
// ordered pair lists, never maps, so repeated names survive the round trip.
// Field order is fixed by this struct and CustomData marshals with sorted
// keys, so an encode/decode/encode round trip is byte-for-byte stable.
type fullRecord struct {
	GUID            uuid.UUID         `json:"guid"`
	ApplicationName string            `json:"applicationName"`
	MachineName     string            `json:"machineName"`
	Type            string            `json:"type"`
	Source          string            `json:"source"`
	Message         string            `json:"message"`
	Detail          string            `json:"detail"`
	CreationDate    time.Time         `json:"creationDate"`
	StatusCode      *int              `json:"statusCode,omitempty"`
	ErrorHash       *int64            `json:"errorHash,omitempty"`
	DuplicateCount  int               `json:"duplicateCount"`
	IsDuplicate     bool              `json:"isDuplicate"`
	IsProtected     bool              `json:"isProtected"`
	DeletionDate    *time.Time        `json:"deletionDate,omitempty"`
	QueryString     Pairs             `json:"queryString"`
	Form            Pairs             `json:"form"`
	Cookies         Pairs             `json:"cookies"`
	RequestHeaders  Pairs             `json:"requestHeaders"`
	ServerVariables Pairs             `json:"serverVariables"`
	CustomData      map[string]string `json:"customData"`
}

// detailedRecord is the reduced cross-boundary view. It never carries the
// raw fault, the storage surrogate ID, the rollup policy flag or
// IsDuplicate; timestamps are integer epoch seconds for portability. Each
// collection also appears as a last-value-wins convenience map. This view is
// write-only: Decode reads the pair lists of the full view, never these maps.
type detailedRecord struct {
	GUID            uuid.UUID         `json:"guid"`
	ApplicationName string            `json:"applicationName"`
	MachineName     string            `json:"machineName"`
	Type            string            `json:"type"`
	Source          string            `json:"source"`
	Message         string            `json:"message"`
	Detail          string            `json:"detail"`
	CreationDate    int64             `json:"creationDate"`
	StatusCode      *int              `json:"statusCode,omitempty"`
	ErrorHash       *int64            `json:"errorHash,omitempty"`
	DuplicateCount  int               `json:"duplicateCount"`
	IsProtected     bool              `json:"isProtected"`
	DeletionDate    *int64            `json:"deletionDate,omitempty"`
	Host            string            `json:"host,omitempty"`
	URL             string            `json:"url,omitempty"`
	HTTPMethod      string            `json:"httpMethod,omitempty"`
	IPAddress       string            `json:"ipAddress,omitempty"`
	QueryString     Pairs             `json:"queryString"`
	Form            Pairs             `json:"form"`
	Cookies         Pairs             `json:"cookies"`
	RequestHeaders  Pairs             `json:"requestHeaders"`
	ServerVariables Pairs             `json:"serverVariables"`
	QueryStringMap  map[string]string `json:"queryStringMap,omitempty"`
	FormMap         map[string]string `json:"formMap,omitempty"`
	CookiesMap      map[string]string `json:"cookiesMap,omitempty"`
	HeadersMap      map[string]string `json:"requestHeadersMap,omitempty"`
	ServerVarsMap   map[string]string `json:"serverVariablesMap,omitempty"`
	CustomData      map[string]string `json:"customData,omitempty"`
}

// EncodeFull serializes the lossless wire view of the record.
func EncodeFull(e *Error) ([]byte, error) {
	v := fullRecord{
		GUID:            e.GUID,
		ApplicationName: e.ApplicationName,
		MachineName:     e.MachineName,
		Type:            e.Type,
		Source:          e.Source,
		Message:         e.Message,
		Detail:          e.Detail,
		CreationDate:    e.CreationDate,
		StatusCode:      e.StatusCode,
		ErrorHash:       e.ErrorHash,
		DuplicateCount:  e.DuplicateCount,
		IsDuplicate:     e.IsDuplicate,
		IsProtected:     e.IsProtected,
		DeletionDate:    e.DeletionDate,
		QueryString:     e.QueryString,
		Form:            e.Form,
		Cookies:         e.Cookies,
		RequestHeaders:  e.RequestHeaders,
		ServerVariables: e.ServerVariables,
		CustomData:      e.CustomData,
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode error record: %w", err)
	}
	return b, nil
}

// EncodeDetailed serializes the reduced view intended to cross the
// originating trust boundary.
func EncodeDetailed(e *Error) ([]byte, error) {
	v := detailedRecord{
		GUID:            e.GUID,
		ApplicationName: e.ApplicationName,
		MachineName:     e.MachineName,
		Type:            e.Type,
		Source:          e.Source,
		Message:         e.Message,
		Detail:          e.Detail,
		CreationDate:    e.CreationDate.Unix(),
		StatusCode:      e.StatusCode,
		ErrorHash:       e.ErrorHash,
		DuplicateCount:  e.DuplicateCount,
		IsProtected:     e.IsProtected,
		Host:            e.Host(),
		URL:             e.URL(),
		HTTPMethod:      e.HTTPMethod(),
		IPAddress:       e.IPAddress(),
		QueryString:     e.QueryString,
		Form:            e.Form,
		Cookies:         e.Cookies,
		RequestHeaders:  e.RequestHeaders,
		ServerVariables: e.ServerVariables,
		QueryStringMap:  e.QueryString.ToMap(),
		FormMap:         e.Form.ToMap(),
		CookiesMap:      e.Cookies.ToMap(),
		HeadersMap:      e.RequestHeaders.ToMap(),
		ServerVarsMap:   e.ServerVariables.ToMap(),
		CustomData:      e.CustomData,
	}
	if e.DeletionDate != nil {
		secs := e.DeletionDate.Unix()
		v.DeletionDate = &secs
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode detailed record: %w", err)
	}
	return b, nil
}

// Decode reconstructs a record from its full-view encoding. The five
// collections are rebuilt from their pair lists with insertion order and
// multiplicity intact. Malformed input returns ErrMalformedRecord with no
// record; decode never partially populates one.
func Decode(data []byte) (*Error, error) {
	if err := fastjson.ValidateBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	var v fullRecord
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return &Error{
		GUID:            v.GUID,
		ApplicationName: v.ApplicationName,
		MachineName:     v.MachineName,
		Type:            v.Type,
		Source:          v.Source,
		Message:         v.Message,
		Detail:          v.Detail,
		CreationDate:    v.CreationDate,
		StatusCode:      v.StatusCode,
		ErrorHash:       v.ErrorHash,
		DuplicateCount:  v.DuplicateCount,
		IsDuplicate:     v.IsDuplicate,
		IsProtected:     v.IsProtected,
		DeletionDate:    v.DeletionDate,
		QueryString:     v.QueryString,
		Form:            v.Form,
		Cookies:         v.Cookies,
		RequestHeaders:  v.RequestHeaders,
		ServerVariables: v.ServerVariables,
		CustomData:      v.CustomData,
	}, nil
}
