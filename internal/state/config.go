package state

import (
	"bytes"
	"encoding/json"
)

// Config is the typed view over the document's "config" object. Pointer
// fields distinguish "unset" from a zero value, matching the tri-state
// semantics of the on-disk document.
type Config struct {
	Name            *string `json:"name"`
	Device          *string `json:"device"`
	Mixer           *string `json:"mixer"`
	Interface       *string `json:"interface"`
	HardwareAddress *string `json:"hardware_address"`
	AirplayDeviceID *string `json:"airplay_device_id"`
	OutputRate      *int    `json:"output_rate"`
	Statistics      bool    `json:"statistics"`
	Interpolation   *string `json:"interpolation"`
}

// ConfigFrom decodes the config child of doc. Unknown or malformed fields
// fall back to their zero values.
func ConfigFrom(doc Document) Config {
	var cfg Config
	decodeInto(Child(doc, "config"), &cfg)
	return cfg
}

// Document re-encodes the config as a mergeable child object.
func (c Config) Document() Document {
	return ToDocument(c)
}

// decodeInto round-trips a generic map through JSON into a typed struct.
func decodeInto(doc Document, dst any) {
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, dst)
}

// ToDocument round-trips a typed struct through JSON into a generic map,
// the shape engines hand to Store.Update.
func ToDocument(v any) Document {
	data, err := json.Marshal(v)
	if err != nil {
		return Document{}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}
	}
	return doc
}

// Equal compares two values by canonical JSON encoding. It is how engines
// decide whether persisted state actually changed; int/float64 encoding
// differences from a JSON round-trip compare equal.
func Equal(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
