// Package callback defines the identity of a registered completion-callback
// batch.
//
// A client submits a transaction tagged with one or more callback IDs. Each
// ID carries a sequence number and a Kind that says whether the caller wants
// to hear about the transaction once it is committed (applied) or once it is
// presented (made visible). The IDs of one transaction form a contiguous run;
// the first ID's sequence number orders the whole batch relative to other
// batches of the same listener.
//
// # Ordering Precondition
//
// Producers MUST assign sequence numbers in strictly increasing,
// non-overlapping runs per listener. Batch lookup compares only leading
// sequence numbers (see IDs.Compare), so overlapping runs would alias two
// batches. This package cannot detect a violation.
package callback
