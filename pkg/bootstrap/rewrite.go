package bootstrap

import (
	"fmt"
	"regexp"
)

const canonicalTemplate = `import xapi from 'xapi';
import { mem } from './%s';

mem.localScript = (typeof import.meta !== 'undefined' && import.meta.url)
  ? import.meta.url.split('/').pop().replace(/\.js$/i, '')
  : 'Unknown';

`

// CanonicalBlock returns the bootstrap statements injected into units.
func CanonicalBlock(module string) string {
	return fmt.Sprintf(canonicalTemplate, NewProber(module).Module())
}

// LeadingMarkers returns the length of the leading run of marker statements
// in text. Each marker is consumed at most once, in any order.
func (p *Prober) LeadingMarkers(text string) int {
	prefixes := []*regexp.Regexp{hostImportPrefix, p.memoryPrefix, identityPrefix}
	used := make([]bool, len(prefixes))

	offset := 0
	for {
		advanced := false
		for i, prefix := range prefixes {
			if used[i] {
				continue
			}
			loc := prefix.FindStringIndex(text[offset:])
			if loc == nil || loc[1] == 0 {
				continue
			}
			used[i] = true
			offset += loc[1]
			advanced = true
			break
		}
		if !advanced {
			return offset
		}
	}
}

// Rewrite replaces the leading marker run with the canonical block and keeps
// the remainder of text verbatim.
func (p *Prober) Rewrite(text string) string {
	return CanonicalBlock(p.module) + text[p.LeadingMarkers(text):]
}

// Rewrite is the package-level form of Prober.Rewrite.
func Rewrite(text, module string) string {
	return NewProber(module).Rewrite(text)
}
