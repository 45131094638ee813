package bitly

import (
	"bytes"
	"encoding/json"
)

// Payload is a decoded API response: SuccessPayload, ErrorPayload or RawToken
type Payload interface {
	payload()
}

// ShortenData is the data object of a successful shorten response
type ShortenData struct {
	URL        string `json:"url"`
	Hash       string `json:"hash"`
	GlobalHash string `json:"global_hash"`
	LongURL    string `json:"long_url"`
	NewHash    int    `json:"new_hash"`
}

// SuccessPayload is a response whose status_code is in the 2xx range
type SuccessPayload struct {
	StatusCode int
	StatusTxt  string
	Data       *ShortenData
}

// ErrorPayload is a response whose status_code is outside the 2xx range
type ErrorPayload struct {
	StatusCode int
	StatusTxt  string
}

// RawToken is a body that is not a JSON object, as returned by the
// access token endpoint.
type RawToken string

func (SuccessPayload) payload() {}
func (ErrorPayload) payload() {}
func (RawToken) payload() {}

type envelope struct {
	StatusCode *int            `json:"status_code"`
	StatusTxt  string          `json:"status_txt"`
	Data       json.RawMessage `json:"data"`
}

// DecodePayload classifies a raw body without turning error payloads into errors.
func DecodePayload(body []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(body)
	// anything but a JSON object is the token endpoint's plain text answer
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return RawToken(trimmed), nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, malformed("invalid JSON object", body, err)
	}
	if env.StatusCode == nil {
		return nil, malformed("missing status_code", body, nil)
	}

	code := *env.StatusCode
	if code < 200 || code >= 300 {
		return ErrorPayload{StatusCode: code, StatusTxt: env.StatusTxt}, nil
	}

	p := SuccessPayload{StatusCode: code, StatusTxt: env.StatusTxt}
	// data is an empty array on some endpoints, only objects carry a URL
	if d := bytes.TrimSpace(env.Data); len(d) > 0 && d[0] == '{' {
		var data ShortenData
		if err := json.Unmarshal(d, &data); err != nil {
			return nil, malformed("invalid data object", body, err)
		}
		p.Data = &data
	}

	return p, nil
}

// HandleResponse decodes body and turns error payloads into typed errors.
// It returns either a SuccessPayload or a RawToken.
func HandleResponse(body []byte) (Payload, error) {
	p, err := DecodePayload(body)
	if err != nil {
		return nil, err
	}
	if e, ok := p.(ErrorPayload); ok {
		return nil, e.Err()
	}

	return p, nil
}

// Err maps the payload onto the error taxonomy
func (p ErrorPayload) Err() error {
	switch p.StatusTxt {
	case StatusRateLimitExceeded:
		return &RateLimitError{StatusCode: p.StatusCode}
	case StatusInvalidLogin:
		return &AuthError{StatusCode: p.StatusCode}
	default:
		return &APIError{StatusCode: p.StatusCode, Message: p.StatusTxt}
	}
}
