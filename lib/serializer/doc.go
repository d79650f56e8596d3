// Package serializer converts persisted blobs (storage-safe state trees) to
// bytes for the key-value backend and back.
//
// Key Components:
//
//   - IBlobSerializer: Core interface that all serializer implementations must satisfy.
//
//   - jsonSerializerImpl: JSON encoding, the default. Readable with any
//     tool that can inspect the backend; numbers decode as float64.
//
//   - gobSerializerImpl: Go's gob encoding. Keeps integer types intact but
//     is only readable by Go programs; the concrete types that may appear
//     in a blob are registered in init.
//
// A serializer only sees plain data: slices turn their runtime state into
// maps, slices and scalars before a blob reaches this package.
package serializer
