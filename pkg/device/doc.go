// Package device defines the facade the session layer reports into.
//
// The session layer owns the channel to the peer; the device owns the
// virtqueues and the guest-visible link state. Port is the narrow seam
// between them: the session reports link health and forwards queue
// notifications, nothing more. Queue notifications are forwarded
// synchronously and are not deduplicated; the device decides how to act
// on repeated notifications for the same queue.
package device
