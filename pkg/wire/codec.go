package wire

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for NETIPC messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for NETIPC messages.
var decMode cbor.DecMode

func init() {
	var err error

	// Configure encoder for deterministic output
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Configure decoder to be lenient for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeInit encodes an init message to CBOR bytes.
func EncodeInit(msg *Init) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid init: %w", err)
	}
	return Marshal(msg)
}

// DecodeInit decodes CBOR bytes into an init message.
func DecodeInit(data []byte) (*Init, error) {
	var msg Init
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode init: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid init: %w", err)
	}
	return &msg, nil
}

// EncodeAck encodes an ack message to CBOR bytes.
func EncodeAck(msg *Ack) ([]byte, error) {
	if msg.Type != MessageTypeAck {
		return nil, fmt.Errorf("ack message has type %s", msg.Type)
	}
	return Marshal(msg)
}

// DecodeAck decodes CBOR bytes into an ack message.
func DecodeAck(data []byte) (*Ack, error) {
	var msg Ack
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode ack: %w", err)
	}
	if msg.Type != MessageTypeAck {
		return nil, fmt.Errorf("not an ack message: type=%s", msg.Type)
	}
	return &msg, nil
}

// EncodeReconfigure encodes a reconfigure message to CBOR bytes.
func EncodeReconfigure() ([]byte, error) {
	return Marshal(NewReconfigure())
}

// EncodeKick encodes a kick message to CBOR bytes.
func EncodeKick(msg *Kick) ([]byte, error) {
	if msg.Type != MessageTypeKick {
		return nil, fmt.Errorf("kick message has type %s", msg.Type)
	}
	return Marshal(msg)
}

// DecodeKick decodes CBOR bytes into a kick message.
func DecodeKick(data []byte) (*Kick, error) {
	var msg Kick
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode kick: %w", err)
	}
	if msg.Type != MessageTypeKick {
		return nil, fmt.Errorf("not a kick message: type=%s", msg.Type)
	}
	return &msg, nil
}

// PeekMessageType examines CBOR data to determine the message type
// without fully decoding it. Unrecognized but well-formed messages
// return MessageTypeUnknown with a nil error so callers can log and
// skip them without tearing the connection down.
func PeekMessageType(data []byte) (MessageType, error) {
	var peek struct {
		Type uint8 `cbor:"1,keyasint"`
	}
	if err := Unmarshal(data, &peek); err != nil {
		return MessageTypeUnknown, fmt.Errorf("failed to peek message: %w", err)
	}

	t := MessageType(peek.Type)
	if !t.IsValid() {
		return MessageTypeUnknown, nil
	}
	return t, nil
}
