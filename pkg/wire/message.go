package wire

import (
	"fmt"
)

// CBOR map keys shared by all NETIPC messages.
const (
	// KeyType holds the MessageType in every message.
	KeyType = 1

	// Init-specific keys.
	KeyNodeID      = 2
	KeyMemorySize  = 3
	KeyLowMemLimit = 4

	// Ack-specific key.
	KeyStatus = 2

	// Kick-specific key.
	KeyQueue = 2
)

// Init describes the guest memory region the peer should map.
//
// CBOR encoding:
//
//	{
//	  1: type,         // uint8: 1
//	  2: nodeId,       // uint32
//	  3: memorySize,   // uint64: region length in bytes
//	  4: lowMemLimit   // uint32: below-4G boundary address
//	}
//
// The region's backing file descriptor is not part of the CBOR payload;
// it is attached as SCM_RIGHTS ancillary data when the frame is sent.
type Init struct {
	Type        MessageType `cbor:"1,keyasint"`
	NodeID      uint32      `cbor:"2,keyasint"`
	MemorySize  uint64      `cbor:"3,keyasint"`
	LowMemLimit uint32      `cbor:"4,keyasint"`
}

// Validate checks if the init message is valid.
func (m *Init) Validate() error {
	if m.Type != MessageTypeInit {
		return fmt.Errorf("init message has type %s", m.Type)
	}
	if m.MemorySize == 0 {
		return fmt.Errorf("init message has zero memory size")
	}
	return nil
}

// Ack is the peer's response to an Init message.
//
// CBOR encoding:
//
//	{
//	  1: type,    // uint8: 2
//	  2: status   // uint8: 0=OK, or error code
//	}
type Ack struct {
	Type   MessageType `cbor:"1,keyasint"`
	Status AckStatus   `cbor:"2,keyasint"`
}

// OK returns true if the peer accepted the init.
func (m *Ack) OK() bool {
	return m.Status == AckStatusOK
}

// Reconfigure declares the channel ready for steady-state traffic.
// It carries no payload beyond its type.
type Reconfigure struct {
	Type MessageType `cbor:"1,keyasint"`
}

// Kick notifies the client that a queue has pending work.
//
// CBOR encoding:
//
//	{
//	  1: type,   // uint8: 4
//	  2: queue   // uint16: queue index
//	}
type Kick struct {
	Type  MessageType `cbor:"1,keyasint"`
	Queue uint16      `cbor:"2,keyasint"`
}

// NewInit builds an init message for the given node and memory region.
func NewInit(nodeID uint32, memorySize uint64, lowMemLimit uint32) *Init {
	return &Init{
		Type:        MessageTypeInit,
		NodeID:      nodeID,
		MemorySize:  memorySize,
		LowMemLimit: lowMemLimit,
	}
}

// NewAck builds an ack message with the given status.
func NewAck(status AckStatus) *Ack {
	return &Ack{Type: MessageTypeAck, Status: status}
}

// NewReconfigure builds a reconfigure message.
func NewReconfigure() *Reconfigure {
	return &Reconfigure{Type: MessageTypeReconfigure}
}

// NewKick builds a kick message for the given queue index.
func NewKick(queue uint16) *Kick {
	return &Kick{Type: MessageTypeKick, Queue: queue}
}
