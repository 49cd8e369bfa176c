package request

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
	"gitlab.com/tozd/go/errors"
)

// Requests are encoded as a JSON object whose "type" key holds the snake_case variant name,
// followed by the variant fields in declaration order.

var (
	ErrUnknownRequestType = errors.Base("unknown request type")
	ErrMissingField       = errors.Base("missing request field")
)

// requiredFields lists the keys every encoded variant must carry. register_session's client
// may be null or absent.
var requiredFields = map[string][]string{
	TypeRegisterSession:    {"name"},
	TypeSessionExit:        {"name"},
	TypeTryEnableHighlight: {"lang", "client"},
	TypeHighlight:          {"client", "buffer", "lang", "timestamp"},
	TypeTextObjects:        {"client", "buffer", "lang", "pattern", "selections", "mode"},
	TypeNav:                {"client", "buffer", "lang", "selections", "dir"},
}

// Marshal encodes a request the way it goes on the wire.
func Marshal(req Message) ([]byte, error) {
	return encode(req)
}

// encode skips HTML escaping so paths and patterns keep their literal bytes.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (me RegisterSession) MarshalJSON() ([]byte, error) {
	type fields RegisterSession
	return encode(struct {
		Type string `json:"type"`
		fields
	}{TypeRegisterSession, fields(me)})
}

func (me SessionExit) MarshalJSON() ([]byte, error) {
	type fields SessionExit
	return encode(struct {
		Type string `json:"type"`
		fields
	}{TypeSessionExit, fields(me)})
}

func (Reload) MarshalJSON() ([]byte, error) {
	return encode(struct {
		Type string `json:"type"`
	}{TypeReload})
}

func (Shutdown) MarshalJSON() ([]byte, error) {
	return encode(struct {
		Type string `json:"type"`
	}{TypeShutdown})
}

func (me TryEnableHighlight) MarshalJSON() ([]byte, error) {
	type fields TryEnableHighlight
	return encode(struct {
		Type string `json:"type"`
		fields
	}{TypeTryEnableHighlight, fields(me)})
}

func (me Highlight) MarshalJSON() ([]byte, error) {
	type fields Highlight
	return encode(struct {
		Type string `json:"type"`
		fields
	}{TypeHighlight, fields(me)})
}

func (me TextObjects) MarshalJSON() ([]byte, error) {
	type fields TextObjects
	return encode(struct {
		Type string `json:"type"`
		fields
	}{TypeTextObjects, fields(me)})
}

func (me Nav) MarshalJSON() ([]byte, error) {
	type fields Nav
	return encode(struct {
		Type string `json:"type"`
		fields
	}{TypeNav, fields(me)})
}

// Discriminator returns the "type" of an encoded request.
func Discriminator(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", errors.Errorf("request is not valid JSON")
	}

	typ := gjson.GetBytes(data, "type")
	if typ.Type != gjson.String {
		return "", errors.WrapWith(errors.Errorf("missing type discriminator"), ErrUnknownRequestType)
	}

	return typ.String(), nil
}

func UnmarshalUnixRequest(data []byte) (UnixRequest, error) {
	typ, err := Discriminator(data)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypeRegisterSession:
		return decodeUnix[RegisterSession](data)
	case TypeSessionExit:
		return decodeUnix[SessionExit](data)
	case TypeReload:
		return Reload{}, nil
	case TypeShutdown:
		return Shutdown{}, nil
	default:
		return nil, errors.WrapWith(errors.Errorf("%q is not a unix request", typ), ErrUnknownRequestType)
	}
}

func UnmarshalRequest(data []byte) (Request, error) {
	typ, err := Discriminator(data)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypeTryEnableHighlight:
		return decodeRequest[TryEnableHighlight](data)
	case TypeHighlight:
		return decodeRequest[Highlight](data)
	case TypeTextObjects:
		return decodeRequest[TextObjects](data)
	case TypeNav:
		return decodeRequest[Nav](data)
	default:
		return nil, errors.WrapWith(errors.Errorf("%q is not a buffer request", typ), ErrUnknownRequestType)
	}
}

func decodeUnix[T UnixRequest](data []byte) (UnixRequest, error) {
	var v T
	if err := requireFields(v.Type(), data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Errorf("decoding %s: %w", v.Type(), err)
	}
	return v, nil
}

func decodeRequest[T Request](data []byte) (Request, error) {
	var v T
	if err := requireFields(v.Type(), data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Errorf("decoding %s: %w", v.Type(), err)
	}
	return v, nil
}

func requireFields(typ string, data []byte) error {
	for _, key := range requiredFields[typ] {
		if v := gjson.GetBytes(data, key); !v.Exists() || v.Type == gjson.Null {
			return errors.WrapWith(errors.Errorf("%s: %q is required", typ, key), ErrMissingField)
		}
	}
	return nil
}
