// Package models defines the records exchanged with the bill-splitting API.
//
// # Ownership
//
// Every model here is owned by the remote API. The web client reads them,
// renders them and sends back full-record writes; it never derives one from
// another. In particular:
//   - Bill: a shared expense with total, tax, tip and a creator
//   - BillShare: the API's computed breakdown of one participant's share
//   - User: a participant, created through the API
//
// # Write payloads
//
// Two payloads go the other way:
//   - BillCreate: body of both "create bill" and "update bill" (full replace)
//   - ShareAllocation: user id to base amount, replacing the bill's shares
//
// # Wire quirks
//
// The API has been observed to encode tip_split_evenly as 0/1 and to emit
// timestamps without a zone offset. Flag and Timestamp absorb both so that
// decoding never fails on them.
package models
