// Package testing provides a standardised conformance suite for backends
// that satisfy the store.IStore interface.
//
// Example usage:
//
//	func TestMyStore(t *testing.T) {
//		storetesting.RunStoreTests(t, "MyStore", func(t *testing.T) store.IStore {
//			return NewMyStore()
//		})
//	}
package testing
