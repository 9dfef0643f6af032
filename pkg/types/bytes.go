package types

import "fmt"

// Bytes is a uint64 wrapper representing a size in bytes.
type Bytes uint64

// ToBytes wraps a raw byte count.
func ToBytes(n uint64) Bytes { return Bytes(n) }

// FromPages converts a page count to bytes. A non-positive page size yields 0.
func FromPages(pages uint64, pageSize int) Bytes {
	if pageSize <= 0 {
		return 0
	}
	return Bytes(pages * uint64(pageSize))
}

// Uint64 returns the raw byte count.
func (b Bytes) Uint64() uint64 { return uint64(b) }

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB, TB).
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func (b Bytes) String() string { return b.Humanized() }
