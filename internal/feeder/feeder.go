// Package feeder loads ordered payload byte arrays from disk for use as a
// producer's payload data, round-robining through a fixed file list.
package feeder

// Source yields an ordered, looping sequence of payload byte arrays.
type Source interface {
	// Next returns the next payload, wrapping back to the start once the
	// end of the sequence is reached.
	Next() ([]byte, error)

	// Close releases any resources held by the source.
	Close() error

	// Len returns the total number of payloads in the sequence.
	Len() int
}
