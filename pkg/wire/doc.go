// Package wire defines the NETIPC message model and its CBOR encoding.
//
// All messages are CBOR maps with integer keys for compactness. Every
// message carries its type at key 1, so a receiver can classify a frame
// with PeekMessageType before committing to a full decode.
//
// The protocol has exactly four messages:
//
//   - Init (client→peer): describes the guest memory region to map. The
//     region's backing file descriptor travels out-of-band as SCM_RIGHTS
//     ancillary data on the same sendmsg; the CBOR payload carries only
//     size and addressing metadata.
//   - Ack (peer→client): accepts or rejects the Init.
//   - Reconfigure (client→peer): declares the channel ready for
//     steady-state traffic. No payload.
//   - Kick (peer→client): notifies the device that a queue has pending
//     work.
package wire
