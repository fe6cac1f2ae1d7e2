package enums

import "fmt"

// EstimateSection maps to the estimate_section enum in Postgres.
type EstimateSection string

const (
	EstimateSectionMaterials EstimateSection = "materials"
	EstimateSectionLabor     EstimateSection = "labor"
	EstimateSectionMachine   EstimateSection = "machine"
	EstimateSectionUnmapped  EstimateSection = "unmapped"
	EstimateSectionFreeform  EstimateSection = "freeform"
)

var validEstimateSections = []EstimateSection{
	EstimateSectionMaterials,
	EstimateSectionLabor,
	EstimateSectionMachine,
	EstimateSectionUnmapped,
	EstimateSectionFreeform,
}

// IsValid reports whether the value matches the canonical estimate section enum.
func (s EstimateSection) IsValid() bool {
	for _, candidate := range validEstimateSections {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEstimateSection converts raw input into EstimateSection.
func ParseEstimateSection(value string) (EstimateSection, error) {
	for _, candidate := range validEstimateSections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid estimate section %q", value)
}
