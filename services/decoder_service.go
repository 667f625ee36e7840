package services

import (
	"regexp"
	"strconv"
	"strings"

	"github/itish2003/retrieval/models"
)

// The backend reports metrics as labelled lines of free text, e.g.
//
//	Precision@1: 87.350%
//	MAP@R: 45.120%
//	R@1: 91.200%
//	Total embeddings: 16185
//	Embedding dimension: 768
//
// Each field is matched independently so a missing or malformed line only
// zeroes that one field. The text format is not a stable schema; every place
// that needs to understand it goes through these decoders.
var (
	precisionAt1Pattern   = regexp.MustCompile(`Precision@1:\s*([0-9.]+)%`)
	mapAtRPattern         = regexp.MustCompile(`MAP@R:\s*([0-9.]+)%`)
	recallAt1Pattern      = regexp.MustCompile(`R@1:\s*([0-9.]+)%`)
	recallAt5Pattern      = regexp.MustCompile(`R@5:\s*([0-9.]+)%`)
	recallAt10Pattern     = regexp.MustCompile(`R@10:\s*([0-9.]+)%`)
	recallAt100Pattern    = regexp.MustCompile(`R@100:\s*([0-9.]+)%`)
	embeddingCountPattern = regexp.MustCompile(`Total embeddings:\s*([0-9]+)`)
	dimensionPattern      = regexp.MustCompile(`Embedding dimension:\s*([0-9]+)`)
)

// DecodeMetrics extracts the accuracy figures from raw backend metrics text.
// It never fails: absent or malformed fields decode to zero.
func DecodeMetrics(raw string) models.Metrics {
	return models.Metrics{
		PrecisionAt1:   matchFloat(precisionAt1Pattern, raw),
		MAPAtR:         matchFloat(mapAtRPattern, raw),
		RecallAt1:      matchFloat(recallAt1Pattern, raw),
		RecallAt5:      matchFloat(recallAt5Pattern, raw),
		RecallAt10:     matchFloat(recallAt10Pattern, raw),
		RecallAt100:    matchFloat(recallAt100Pattern, raw),
		EmbeddingCount: matchInt(embeddingCountPattern, raw),
		Dimension:      int(matchInt(dimensionPattern, raw)),
	}
}

// DecodeCaption splits a result caption into its display pair. Captions are at
// most two lines, "<label>\n<similarity>", with known prefixes on each line.
// Missing input or missing segments fall back to "Unknown" / "0.000".
func DecodeCaption(raw string) models.Caption {
	caption := models.Caption{Label: "Unknown", Similarity: "0.000"}
	if raw == "" {
		return caption
	}

	segments := strings.SplitN(raw, "\n", 2)
	if label := strings.TrimSpace(segments[0]); label != "" {
		label = strings.TrimPrefix(label, "Class: ")
		label = strings.TrimPrefix(label, "Label: ")
		caption.Label = label
	}
	if len(segments) > 1 {
		if sim := strings.TrimSpace(segments[1]); sim != "" {
			caption.Similarity = strings.TrimPrefix(sim, "Sim: ")
		}
	}
	return caption
}

func matchFloat(pattern *regexp.Regexp, raw string) float64 {
	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return value
}

func matchInt(pattern *regexp.Regexp, raw string) int64 {
	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	value, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return value
}
