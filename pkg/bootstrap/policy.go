package bootstrap

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goliatone/go-macromem/pkg/host"
	"github.com/goliatone/go-macromem/pkg/rules"
)

// Mode selects which units propagation patches.
type Mode string

const (
	ModeAlways           Mode = "always"
	ModeNever            Mode = "never"
	ModeActiveOnly       Mode = "activeOnly"
	ModeCustomList       Mode = "customList"
	ModeCustomActiveList Mode = "customActiveList"
	// ModeRule patches units for which a rules expression evaluates to true.
	ModeRule Mode = "rule"
)

var modeAliases = map[string]Mode{
	"true":         ModeAlways,
	"false":        ModeNever,
	"custom":       ModeCustomList,
	"customActive": ModeCustomActiveList,
}

// ParseMode resolves a configured mode, accepting the legacy true/false/custom
// spellings. Unknown values return ModeNever and a *ConfigError.
func ParseMode(value string) (Mode, error) {
	trimmed := strings.TrimSpace(value)
	switch mode := Mode(trimmed); mode {
	case ModeAlways, ModeNever, ModeActiveOnly, ModeCustomList, ModeCustomActiveList, ModeRule:
		return mode, nil
	}
	if mode, ok := modeAliases[trimmed]; ok {
		return mode, nil
	}
	return ModeNever, &ConfigError{Field: "autoImportMode", Value: value}
}

// Policy decides whether a unit that needs patching is selected.
type Policy struct {
	Mode       Mode
	CustomList []string
	Rule       rules.CompiledRule
}

// Selects reports whether unit is chosen under p. Only ModeRule can fail.
func (p Policy) Selects(unit host.Unit, markers Markers) (bool, error) {
	switch p.Mode {
	case ModeAlways:
		return true, nil
	case ModeActiveOnly:
		return unit.Active, nil
	case ModeCustomList:
		return slices.Contains(p.CustomList, unit.Name), nil
	case ModeCustomActiveList:
		return unit.Active && slices.Contains(p.CustomList, unit.Name), nil
	case ModeRule:
		if p.Rule == nil {
			return false, fmt.Errorf("bootstrap: rule mode without a compiled rule")
		}
		return rules.Match(p.Rule, rules.Context{
			Unit:   unit.Name,
			Active: unit.Active,
			Vars:   markers.Bindings(),
		})
	default:
		return false, nil
	}
}
