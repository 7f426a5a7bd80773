package enums

import "fmt"

// SectionKind is the layout variant of a homepage section.
type SectionKind string

const (
	SectionKindFeatured SectionKind = "featured"
	SectionKindCategory SectionKind = "category"
	SectionKindBanner   SectionKind = "banner"
)

var validSectionKinds = []SectionKind{SectionKindFeatured, SectionKindCategory, SectionKindBanner}

// IsValid reports whether the value is a known SectionKind.
func (k SectionKind) IsValid() bool {
	for _, candidate := range validSectionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseSectionKind converts raw input into a SectionKind.
func ParseSectionKind(value string) (SectionKind, error) {
	for _, candidate := range validSectionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid section kind %q", value)
}
