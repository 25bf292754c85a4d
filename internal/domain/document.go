package domain

import "strings"

// DocumentMetadata carries retrieval metadata for a candidate document.
// Department may be empty when the chunk was indexed without a label.
type DocumentMetadata struct {
	Department Label
	SourceID   string
	Filename   string
}

// CandidateDocument is a retrieval hit consumed by the access filter.
// Score is the retrieval relevance in [0,1].
type CandidateDocument struct {
	Content  string
	Metadata DocumentMetadata
	Score    float64
}

// Chunk is one labeled fragment of an ingested document, ready for
// embedding and storage.
type Chunk struct {
	ID         string
	Content    string
	Department Label
	Source     string
	Filename   string
}

// Source identifies where an answer fragment came from.
type Source struct {
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
}

// CollectSources extracts deduplicated sources from documents, preserving
// the order of first appearance.
func CollectSources(docs []CandidateDocument) []Source {
	seen := make(map[Source]struct{}, len(docs))
	sources := make([]Source, 0, len(docs))
	for i := range docs {
		src := Source{
			Source:   docs[i].Metadata.SourceID,
			Filename: docs[i].Metadata.Filename,
		}
		if src.Filename == "" {
			if idx := strings.LastIndexByte(src.Source, '/'); idx >= 0 {
				src.Filename = src.Source[idx+1:]
			}
		}
		if src == (Source{}) {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources
}
