package exceptional

import "github.com/cespare/xxhash/v2"

// hashMix is the order-sensitive combiner constant for per-server rollup.
// Changing it (or the operator order below) breaks hash compatibility with
// previously stored records.
const hashMix = 397

// ErrorHashFor computes the advisory identity hash used to collapse recurring
// faults without a database lookup. It returns nil when detail is empty:
// a fault with no trace has no usable identity. When rollupPerServer is set
// and machineName is non-empty, the content hash is mixed with the machine
// hash as h*397^m so equal faults on different servers hash apart.
//
// The hash is advisory: collisions are expected and acceptable, and rollup
// logic outside this package decides how to treat equal hashes.
func ErrorHashFor(detail, machineName string, rollupPerServer bool) *int64 {
	if detail == "" {
		return nil
	}
	h := int64(xxhash.Sum64String(detail))
	if rollupPerServer && machineName != "" {
		h = h*hashMix ^ int64(xxhash.Sum64String(machineName))
	}
	return &h
}
