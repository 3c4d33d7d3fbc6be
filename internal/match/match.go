// Package match implements C7: the competitive matcher that turns each
// diarized speaker's embedding plus its top-k neighbor candidates into a
// MatchResult, enforcing that at most one speaker per meeting may claim
// a given enrolled name with high confidence.
package match

import (
	"context"
	"sort"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
)

// Configuration thresholds (canonical defaults).
const (
	HighScoreThreshold = 0.55
	HighMargin         = 0.10
	TopK               = 5
)

// Store is the subset of the C4 vector store the matcher queries.
type Store interface {
	Query(ctx context.Context, vector [entities.EmbeddingDim]float32, k int) ([]entities.Candidate, error)
}

// Match runs the full C7 procedure over a set of diarized speakers and
// returns one MatchResult per label, keyed the same way as the input map.
func Match(ctx context.Context, store Store, embeddings map[string][entities.EmbeddingDim]float32) (map[string]entities.MatchResult, error) {
	labels := make([]string, 0, len(embeddings))
	for label := range embeddings {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	neighbors := make(map[string][]entities.Candidate, len(labels))
	nameSet := make(map[string]struct{})
	for _, label := range labels {
		cands, err := store.Query(ctx, embeddings[label], TopK)
		if err != nil {
			return nil, err
		}
		neighbors[label] = cands
		for _, c := range cands {
			nameSet[c.Name] = struct{}{}
		}
	}

	names := make([]string, 0, len(nameSet))
	for n := range nameSet {
		names = append(names, n)
	}
	sort.Strings(names)

	results := make(map[string]entities.MatchResult, len(labels))

	if len(names) == 0 {
		for _, label := range labels {
			results[label] = entities.MatchResult{Confidence: entities.ConfidenceLow, Candidates: nil}
		}
		return results, nil
	}

	nameIdx := make(map[string]int, len(names))
	for i, n := range names {
		nameIdx[n] = i
	}

	scoreAt := make([]map[string]float64, len(labels))
	costRows := make([][]float64, len(labels))
	for i, label := range labels {
		scoreAt[i] = make(map[string]float64, len(neighbors[label]))
		row := make([]float64, len(names))
		for j := range row {
			row[j] = 2.0
		}
		for _, c := range neighbors[label] {
			scoreAt[i][c.Name] = c.Score
			row[nameIdx[c.Name]] = 1 - c.Score
		}
		costRows[i] = row
	}
	assignment := hungarian(costRows)

	assignedNameByLabel := make(map[string]string, len(labels))
	for i, label := range labels {
		j := assignment[i]
		if j >= 0 && costRows[i][j] < 2.0 {
			assignedNameByLabel[label] = names[j]
		}
	}

	claimCount := make(map[string]int)
	for _, name := range assignedNameByLabel {
		claimCount[name]++
	}

	for i, label := range labels {
		cands := neighbors[label]
		if len(cands) == 0 {
			results[label] = entities.MatchResult{Confidence: entities.ConfidenceLow, Candidates: nil}
			continue
		}

		top := cands[0]
		assignedName, hasAssignment := assignedNameByLabel[label]
		if !hasAssignment {
			assignedName = top.Name
		}
		topScore := scoreAt[i][assignedName]
		if topScore == 0 && assignedName == top.Name {
			topScore = top.Score
		}

		secondBest := -1.0
		for _, c := range cands {
			if c.Name == assignedName {
				continue
			}
			if c.Score > secondBest {
				secondBest = c.Score
			}
		}
		margin := topScore - secondBest

		var confidence entities.Confidence
		var exposedName string
		switch {
		case topScore >= HighScoreThreshold && margin >= HighMargin && hasAssignment && claimCount[assignedName] == 1:
			confidence = entities.ConfidenceHigh
			exposedName = assignedName
		case topScore >= HighScoreThreshold:
			confidence = entities.ConfidenceMedium
		default:
			confidence = entities.ConfidenceLow
		}

		results[label] = entities.MatchResult{
			Confidence:   confidence,
			AssignedName: exposedName,
			TopScore:     topScore,
			Margin:       margin,
			Candidates:   cands,
		}
	}

	return results, nil
}
