package wire

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Kind is the classification of an inbound message.
type Kind int

const (
	// KindUnknown is any message this protocol does not recognize.
	KindUnknown Kind = iota
	// KindResult is a reply-success.
	KindResult
	// KindError is a reply-error.
	KindError
	// KindNotification is a recognized notification.
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindError:
		return "error"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Inbound is the union of every shape the frame may receive.
type Inbound struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`

	// ErrorObject is populated for KindError.
	ErrorObject *ErrorObject `json:"-"`
}

var notificationMethods = map[string]bool{
	MethodConnect:         true,
	MethodClose:           true,
	MethodNotification:    true,
	MethodChainChanged:    true,
	MethodNetworkChanged:  true,
	MethodAccountsChanged: true,
}

// IsNotificationMethod reports whether method is one of the recognized notification kinds.
func IsNotificationMethod(method string) bool {
	return notificationMethods[method]
}

// Classify decodes data and discriminates it by inspection. Data that is not a
// JSON object, or matches none of the known shapes, yields KindUnknown.
func Classify(data []byte) (*Inbound, Kind) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, KindUnknown
	}
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, KindUnknown
	}

	if _, ok := Key(in.ID); ok {
		if in.Error != nil && !isNull(in.Error) {
			var eo ErrorObject
			if err := json.Unmarshal(in.Error, &eo); err != nil {
				return &in, KindUnknown
			}
			in.ErrorObject = &eo
			return &in, KindError
		}
		if in.Result != nil {
			return &in, KindResult
		}
		if in.Method == "" {
			// A bare reply carries no value.
			in.Result = json.RawMessage("null")
			return &in, KindResult
		}
	}

	if IsNotificationMethod(in.Method) {
		return &in, KindNotification
	}
	return &in, KindUnknown
}

// Key canonicalizes a wire identity so that numeric and string forms of the
// same value compare equal: 7, 7.0 and "7" all map to "7". Null, absent,
// and non-scalar ids report false.
func Key(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 't', 'f':
		return "", false
	}
	text := string(raw)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), true
	}
	if u, err := strconv.ParseUint(text, 10, 64); err == nil {
		return strconv.FormatUint(u, 10), true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return "", false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10), true
	}
	return strconv.FormatFloat(f, 'g', -1, 64), true
}

// KeyOf is the canonical key of an outbound numeric identity.
func KeyOf(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
