package config

import "sort"

// Preset is a named crawl budget.
type Preset struct {
	Depth       int
	MaxNodes    int
	Description string
}

var Presets = map[string]Preset{
	"inner-circle": {Depth: 1, MaxNodes: 300, Description: "direct friends of the seed only"},
	"community":    {Depth: 2, MaxNodes: 500, Description: "friends and friends-of-friends"},
}

func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
