package enums

import "fmt"

// SourceType identifies which corpus a retrieved chunk came from.
type SourceType string

const (
	SourceTypeProduct  SourceType = "product"
	SourceTypeHandbook SourceType = "handbook"
)

var validSourceTypes = []SourceType{
	SourceTypeProduct,
	SourceTypeHandbook,
}

// String implements fmt.Stringer.
func (s SourceType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SourceType.
func (s SourceType) IsValid() bool {
	for _, candidate := range validSourceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSourceType converts raw input into a SourceType.
func ParseSourceType(value string) (SourceType, error) {
	for _, candidate := range validSourceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid source type %q", value)
}
