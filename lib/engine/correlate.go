// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package engine

// Correlate links findings that share a non-empty process attribution.
// Every member of a group of two or more gets Related populated with
// its peers' rule names, in the findings' existing order. Correlate
// never merges, drops, or reorders findings — linking is additive
// context for presentation, nothing else.
func Correlate(findings []Finding) []Finding {
	groups := make(map[string][]int)
	for i, finding := range findings {
		if finding.AttributedProcess == "" {
			continue
		}
		groups[finding.AttributedProcess] = append(groups[finding.AttributedProcess], i)
	}

	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		for _, index := range members {
			peers := make([]string, 0, len(members)-1)
			for _, peer := range members {
				if peer != index {
					peers = append(peers, findings[peer].Rule)
				}
			}
			findings[index].Related = peers
		}
	}
	return findings
}
