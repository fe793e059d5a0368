package inspection

// SectionIndex is a flat lookup from section identifier to its record,
// containing only non-grouping (leaf) sections.
type SectionIndex map[string]TemplateSection

// BuildSectionIndex flattens the recursive section tree into a SectionIndex.
// Traversal is depth-first, parent before children, left-to-right among
// siblings. Grouping nodes are excluded from the map but their children are
// still visited and included.
func BuildSectionIndex(sections []TemplateSection) SectionIndex {
	index := make(SectionIndex)
	var walk func(nodes []TemplateSection)
	walk = func(nodes []TemplateSection) {
		for _, node := range nodes {
			if !node.IsParent {
				index[node.ID] = node
			}
			if len(node.Subsections) > 0 {
				walk(node.Subsections)
			}
		}
	}
	walk(sections)
	return index
}
