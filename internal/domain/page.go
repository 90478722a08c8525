package domain

const (
	DefaultPageSize int32 = 20
	MaxPageSize     int32 = 100
)

// ClampLimit bounds a requested page size.
func ClampLimit(n int32) int32 {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}
