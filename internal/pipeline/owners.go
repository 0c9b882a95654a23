package pipeline

import (
	"strings"
	"unicode/utf8"

	"meetflow/internal/textutil"
)

// minFuzzyOwnerLen is the shortest folded label eligible for spelling-variant merging.
// Shorter labels ("Al", "Ali") only merge on an exact folded match.
const minFuzzyOwnerLen = 5

// OwnerNormalizer maps owner labels onto one spelling per person. Configured
// aliases win; remaining labels in a batch are merged when they fold to the
// same key or are spelling variants (a doubled letter or a swapped pair).
type OwnerNormalizer struct {
	aliases map[string]string
}

// NewOwnerNormalizer builds a normalizer from canonical -> variant aliases.
func NewOwnerNormalizer(aliases map[string][]string) *OwnerNormalizer {
	n := &OwnerNormalizer{aliases: make(map[string]string)}
	for canonical, variants := range aliases {
		canonical = strings.TrimSpace(canonical)
		if canonical == "" {
			continue
		}
		n.aliases[textutil.FoldKey(canonical)] = canonical
		for _, variant := range variants {
			if key := textutil.FoldKey(variant); key != "" {
				n.aliases[key] = canonical
			}
		}
	}
	return n
}

type seenOwner struct {
	key   string
	label string
}

// Normalize returns a copy of items with owner labels unified. The first
// spelling seen in the batch becomes the label for its group.
func (n *OwnerNormalizer) Normalize(items []ActionItem) []ActionItem {
	out := make([]ActionItem, 0, len(items))
	var seen []seenOwner
	for _, item := range items {
		item.Owner = strings.Join(strings.Fields(item.Owner), " ")
		item.Text = strings.TrimSpace(item.Text)
		if item.Text == "" {
			continue
		}
		if item.Owner != "" {
			item.Owner, seen = n.resolve(item.Owner, seen)
		}
		out = append(out, item)
	}
	return out
}

func (n *OwnerNormalizer) resolve(label string, seen []seenOwner) (string, []seenOwner) {
	key := textutil.FoldKey(label)
	if n != nil {
		if canonical, ok := n.aliases[key]; ok {
			return canonical, seen
		}
	}
	for _, s := range seen {
		if s.key == key || nearDuplicate(s.key, key) {
			return s.label, seen
		}
	}
	return label, append(seen, seenOwner{key: key, label: label})
}

func nearDuplicate(a, b string) bool {
	if utf8.RuneCountInString(a) < minFuzzyOwnerLen || utf8.RuneCountInString(b) < minFuzzyOwnerLen {
		return false
	}
	return textutil.SpellingVariant(a, b)
}
