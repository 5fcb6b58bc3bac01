package dtos

// Tier is a named sizing preset used when a workspace request carries
// no explicit resource triple.
type Tier struct {
	Name      string         `json:"name"`
	Resources ResourceSizing `json:"resources"`
}

var BuiltinTiers = map[string]Tier{
	"small": {
		Name:      "small",
		Resources: ResourceSizing{Cpu: "500m", Memory: "1Gi", Storage: "5Gi"},
	},
	"medium": {
		Name:      "medium",
		Resources: ResourceSizing{Cpu: "1", Memory: "2Gi", Storage: "10Gi"},
	},
	"large": {
		Name:      "large",
		Resources: ResourceSizing{Cpu: "2", Memory: "4Gi", Storage: "20Gi"},
	},
}
