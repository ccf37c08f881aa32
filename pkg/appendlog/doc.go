/*
Package appendlog provides an append-only concurrent log over a growable,
file-backed memory mapping.

Many goroutines may produce output at once without locking: each caller
claims a disjoint byte range with Reserve (a single atomic fetch-and-add)
and writes into it directly. The log imposes no record framing or schema;
bytes at a reservation's range are exactly the bytes the caller wrote
there, and interpreting them is the caller's business.

Capacity growth (Ensure) and teardown (Sync, Close) are single-writer
operations that must be sequenced against in-flight reservations by the
caller, typically by running them between parallel rounds. After Close the
file's length equals the total number of bytes reserved, with no padding.
*/
package appendlog
