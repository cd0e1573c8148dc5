package discovery

import "github.com/clawinfra/skrills/internal/skillsrc"

// DefaultMaxDepth is the default maximum recursion depth for a scan.
const DefaultMaxDepth = 20

// ignoreDirs lists noise directories skipped during traversal, matching
// the set the original scanner excludes to keep first-run latency down.
var ignoreDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"vendor":       true,
	".venv":        true,
	"__pycache__":  true,
	".cache":       true,
	".tox":         true,
}

// DuplicateEntry records one skill name that was seen at more than one
// root; the first occurrence (by priority order) was kept, the rest
// were skipped.
type DuplicateEntry struct {
	Name          string
	KeptSource    skillsrc.Source
	KeptRoot      string
	SkippedSource skillsrc.Source
	SkippedRoot   string
}

// Result is the output of a discovery scan: the deduplicated skill set
// plus a log of every duplicate that was displaced.
type Result struct {
	Skills     []skillsrc.Meta
	Duplicates []DuplicateEntry
}
