package device

// Port is the device-facing surface consumed by the session layer.
// Implementations must tolerate repeated SetLinkStatus calls with the
// same value and NotifyQueue calls for queues with no pending work.
type Port interface {
	// SetLinkStatus reports whether the channel to the peer is usable.
	SetLinkStatus(up bool)

	// NotifyQueue signals that the identified queue has pending work.
	NotifyQueue(index uint16)
}
