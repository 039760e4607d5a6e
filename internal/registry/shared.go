// SPDX-License-Identifier: MIT
package registry

import "sync"

// Process-wide shared registry instance, reference-counted by the number
// of attached producers and consumers. The instance is constructed on the
// first Acquire and torn down when the last reference is released, which
// guarantees the registry outlives everything that holds a reference.
var (
	sharedMu   sync.Mutex
	sharedInst *SharedRegistry
	sharedRefs int
)

// AcquireShared returns the process-wide SharedRegistry, creating it if
// this is the first reference. Every Acquire must be paired with exactly
// one ReleaseShared.
func AcquireShared() *SharedRegistry {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedInst == nil {
		sharedInst = NewSharedRegistry()
	}
	sharedRefs++
	return sharedInst
}

// ReleaseShared drops one reference to the process-wide registry. When
// the count reaches zero the instance is discarded; a later Acquire
// starts fresh.
func ReleaseShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedRefs == 0 {
		return
	}
	sharedRefs--
	if sharedRefs == 0 {
		sharedInst = nil
	}
}
