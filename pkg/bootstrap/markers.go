package bootstrap

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultModuleName is the unit name of the memory module consumers import.
const DefaultModuleName = "Memory_Functions"

// Markers reports which bootstrap statements a unit already carries.
type Markers struct {
	HostImport         bool `json:"host_import"`
	MemoryImport       bool `json:"memory_import"`
	IdentityAssignment bool `json:"identity_assignment"`
}

// NeedsPatch is true when any marker is missing.
func (m Markers) NeedsPatch() bool {
	return !(m.HostImport && m.MemoryImport && m.IdentityAssignment)
}

// Bindings exposes the markers to selection rules.
func (m Markers) Bindings() map[string]any {
	return map[string]any{
		"hasHostImport":         m.HostImport,
		"hasMemoryImport":       m.MemoryImport,
		"hasIdentityAssignment": m.IdentityAssignment,
	}
}

var (
	hostImportProbe = regexp.MustCompile(`import\s+xapi\s+from\s+['"]xapi['"]`)
	identityProbe   = regexp.MustCompile(`mem\.localScript\s*=`)

	hostImportPrefix = regexp.MustCompile(`^\s*import\s+xapi\s+from\s+['"]xapi['"][ \t]*;?[ \t]*[\r\n]*`)
	// The assignment may continue on indented ternary lines.
	identityPrefix = regexp.MustCompile(`^\s*mem\.localScript\s*=[^;\r\n]*(?:\r?\n[ \t]+[?:][^;\r\n]*)*;?[ \t]*[\r\n]*`)
)

// Prober holds the compiled probes for one module name.
type Prober struct {
	module       string
	memoryProbe  *regexp.Regexp
	memoryPrefix *regexp.Regexp
}

// NewProber compiles the memory-import probes for module. An empty module
// selects DefaultModuleName.
func NewProber(module string) *Prober {
	module = strings.TrimSpace(module)
	if module == "" {
		module = DefaultModuleName
	}
	quoted := regexp.QuoteMeta(module)
	return &Prober{
		module:       module,
		memoryProbe:  regexp.MustCompile(fmt.Sprintf(`import\s+\{\s*mem\s*\}\s+from\s+['"]\./%s(?:\.js)?['"]`, quoted)),
		memoryPrefix: regexp.MustCompile(fmt.Sprintf(`^\s*import\s+\{\s*mem\s*\}\s+from\s+['"]\./%s(?:\.js)?['"][ \t]*;?[ \t]*[\r\n]*`, quoted)),
	}
}

// Module returns the module unit name the prober was built for.
func (p *Prober) Module() string {
	return p.module
}

// HasHostImport probes for the host capability import.
func (p *Prober) HasHostImport(text string) bool {
	return hostImportProbe.MatchString(text)
}

// HasMemoryImport probes for the memory module import.
func (p *Prober) HasMemoryImport(text string) bool {
	return p.memoryProbe.MatchString(text)
}

// HasIdentityAssignment probes for the caller identity assignment.
func (p *Prober) HasIdentityAssignment(text string) bool {
	return identityProbe.MatchString(text)
}

// Probe runs all three probes.
func (p *Prober) Probe(text string) Markers {
	return Markers{
		HostImport:         p.HasHostImport(text),
		MemoryImport:       p.HasMemoryImport(text),
		IdentityAssignment: p.HasIdentityAssignment(text),
	}
}

// Probe runs the three probes for module.
func Probe(text, module string) Markers {
	return NewProber(module).Probe(text)
}
