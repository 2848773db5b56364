package wire

// MessageType identifies a NETIPC message. Carried at CBOR key 1 in
// every message.
type MessageType uint8

const (
	// MessageTypeUnknown is the zero value; never sent on the wire.
	MessageTypeUnknown MessageType = 0

	// MessageTypeInit is the client's memory-description message.
	MessageTypeInit MessageType = 1

	// MessageTypeAck is the peer's response to an Init.
	MessageTypeAck MessageType = 2

	// MessageTypeReconfigure signals the channel is ready for traffic.
	MessageTypeReconfigure MessageType = 3

	// MessageTypeKick notifies pending work on a queue.
	MessageTypeKick MessageType = 4
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MessageTypeInit:
		return "INIT"
	case MessageTypeAck:
		return "ACK"
	case MessageTypeReconfigure:
		return "RECONFIGURE"
	case MessageTypeKick:
		return "KICK"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true for message types defined by the protocol.
func (t MessageType) IsValid() bool {
	return t >= MessageTypeInit && t <= MessageTypeKick
}

// AckStatus is the result code carried in an Ack message.
type AckStatus uint8

const (
	// AckStatusOK indicates the peer accepted the memory region.
	AckStatusOK AckStatus = 0

	// AckStatusMapFailed indicates the peer could not map the region.
	AckStatusMapFailed AckStatus = 1

	// AckStatusRejected indicates the peer refused the session.
	AckStatusRejected AckStatus = 2
)

// String returns the status name.
func (s AckStatus) String() string {
	switch s {
	case AckStatusOK:
		return "OK"
	case AckStatusMapFailed:
		return "MAP_FAILED"
	case AckStatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}
