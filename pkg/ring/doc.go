// Package ring implements the single-producer/single-consumer queue
// shared by the two cores.
//
// The queue lives in a Segment of shared RAM. Its layout is
//
//	offset  size  field
//	0       4     magic, written last by Reset
//	4       4     capacity (number of slots)
//	8       4     head, free-running read index, written by the consumer only
//	12      4     tail, free-running write index, written by the producer only
//	16      8*N   slots, little-endian 64-bit records
//
// Each side stores only its own index and loads the other's. No
// read-modify-write is ever performed on shared memory, so the queue is
// correct only while there is exactly one producer and one consumer.
// Queue enforces that per core with one-shot tokens. Nothing can
// enforce it across cores.
package ring
