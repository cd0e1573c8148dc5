package discovery

import "github.com/clawinfra/skrills/internal/skillsrc"

// dedupe applies priority deduplication: for each skill name, the first
// occurrence in root-iteration order is kept; every later occurrence is
// recorded in the duplicate log and discarded. Priority is exactly the
// order of roots (and therefore of perRoot), not sorted afterwards.
func dedupe(roots []skillsrc.Root, perRoot [][]skillsrc.Meta) Result {
	kept := make(map[string]skillsrc.Meta)
	order := make([]string, 0)
	var duplicates []DuplicateEntry

	for i := range roots {
		for _, meta := range perRoot[i] {
			existing, ok := kept[meta.Name]
			if !ok {
				kept[meta.Name] = meta
				order = append(order, meta.Name)
				continue
			}
			duplicates = append(duplicates, DuplicateEntry{
				Name:          meta.Name,
				KeptSource:    existing.Source,
				KeptRoot:      existing.RootPath,
				SkippedSource: meta.Source,
				SkippedRoot:   meta.RootPath,
			})
		}
	}

	skills := make([]skillsrc.Meta, 0, len(order))
	for _, name := range order {
		skills = append(skills, kept[name])
	}
	return Result{Skills: skills, Duplicates: duplicates}
}
