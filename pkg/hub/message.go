// Package hub fans out JSON events to dashboard websocket clients using a
// single goroutine that owns the client set.
package hub

import "encoding/json"

// Event types sent to clients.
const (
	TypeStatus      = "status"      // every processed frame
	TypeAlert       = "alert"       // the displayed alert changed
	TypeCalibration = "calibration" // a calibration run finished
	TypeSettings    = "settings"    // settings were saved
)

// Envelope is the wire form of every message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Message is an encoded envelope ready to write.
type Message struct {
	Type string
	Data []byte
}

// Encode wraps v in an envelope of the given type.
func Encode(typ string, v any) (Message, error) {
	data, err := json.Marshal(Envelope{Type: typ, Data: v})
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Data: data}, nil
}
