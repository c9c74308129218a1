package barcode

import (
	"encoding/json"
	"errors"
)

// Payload is the data embedded in a printed QR image. Field names are part of
// the wire contract with deployed scanner clients.
type Payload struct {
	CodeID string `json:"code_id"`
	Key    string `json:"key"`
}

// EncodePayload serializes {id, secret} for embedding in a QR image.
func EncodePayload(id, secret string) (string, error) {
	data, err := json.Marshal(Payload{CodeID: id, Key: secret})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodePayload recovers exactly the {id, secret} pair from a scanned payload.
func DecodePayload(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, err
	}
	if p.CodeID == "" || p.Key == "" {
		return Payload{}, errors.New("payload missing code_id or key")
	}
	return p, nil
}
