package enums

import "fmt"

// ResourceGroup maps to the resource_group enum in Postgres.
// The legacy catalog codes are kept verbatim: "NC" tags labor norms and
// "M" tags machine hours; everything else in the catalog is material.
type ResourceGroup string

const (
	ResourceGroupMaterial ResourceGroup = "material"
	ResourceGroupLabor    ResourceGroup = "NC"
	ResourceGroupMachine  ResourceGroup = "M"
)

var validResourceGroups = []ResourceGroup{
	ResourceGroupMaterial,
	ResourceGroupLabor,
	ResourceGroupMachine,
}

// IsValid reports whether the value matches the canonical resource group enum.
func (g ResourceGroup) IsValid() bool {
	for _, candidate := range validResourceGroups {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseResourceGroup converts raw input into ResourceGroup.
func ParseResourceGroup(value string) (ResourceGroup, error) {
	for _, candidate := range validResourceGroups {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resource group %q", value)
}

// Section returns the estimate bucket the group's lines land in.
func (g ResourceGroup) Section() EstimateSection {
	switch g {
	case ResourceGroupLabor:
		return EstimateSectionLabor
	case ResourceGroupMachine:
		return EstimateSectionMachine
	default:
		return EstimateSectionMaterials
	}
}
