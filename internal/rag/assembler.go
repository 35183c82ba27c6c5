package rag

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// genericFilenames are placeholder names that cannot identify a legacy document.
var genericFilenames = map[string]bool{
	"unknown":   true,
	"untitled":  true,
	"document":  true,
	"file":      true,
	"unnamed":   true,
	"none":      true,
	"null":      true,
	"undefined": true,
	"n/a":       true,
}

// ContextAssembler selects evidence from ranked candidates and joins it into prompt context.
type ContextAssembler struct {
	limit int
}

// NewContextAssembler creates an assembler that selects at most limit items.
func NewContextAssembler(limit int) ContextAssembler {
	return ContextAssembler{limit: limit}
}

// Assemble picks evidence in two passes over candidates, which must already be sorted by
// boosted score. Pass one takes the best chunk with text of every keyword-matched document.
// Pass two fills the remaining budget with the best chunk of every other document.
func (a ContextAssembler) Assemble(q Query, candidates []Candidate) ([]EvidenceItem, string) {
	var (
		evidence      []EvidenceItem
		seenDocs      = make(map[string]bool)
		seenFilenames = make(map[string]bool)
	)
	add := func(c Candidate) {
		evidence = append(evidence, EvidenceItem{Candidate: c, Rank: len(evidence) + 1})
	}

	for _, c := range candidates {
		if len(evidence) >= a.limit {
			break
		}
		if !c.KeywordMatch || c.DocumentID == "" || seenDocs[c.DocumentID] {
			continue
		}
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		seenDocs[c.DocumentID] = true
		add(c)
	}

	for _, c := range candidates {
		if len(evidence) >= a.limit {
			break
		}
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if c.DocumentID != "" {
			if seenDocs[c.DocumentID] {
				continue
			}
			seenDocs[c.DocumentID] = true
			add(c)
			continue
		}

		// Legacy chunks carry no document id; fall back to the filename.
		key := strings.ToLower(strings.TrimSpace(c.Filename))
		if key == "" || isGenericFilename(key) || seenFilenames[key] {
			continue
		}
		seenFilenames[key] = true
		add(c)
	}

	if len(evidence) == 0 {
		return nil, noContextText(q)
	}

	texts := make([]string, len(evidence))
	for i, e := range evidence {
		texts[i] = e.Text
	}
	return evidence, strings.Join(texts, ContextSeparator)
}

func isGenericFilename(name string) bool {
	if genericFilenames[name] {
		return true
	}
	return genericFilenames[strings.TrimSuffix(name, filepath.Ext(name))]
}

func noContextText(q Query) string {
	partition := q.Partition
	if partition == "" {
		partition = storage.PartitionSystem
	}
	return fmt.Sprintf(`No relevant context found in %s documents for the query "%s".`, partition, q.Text)
}
