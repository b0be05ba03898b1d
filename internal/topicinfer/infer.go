// Package topicinfer guesses which topic a free-text query belongs to by
// keyword overlap with topic identifiers.
package topicinfer

import (
	"sort"
	"strings"

	"librarian/internal/library"
)

// Status values for an inference outcome.
const (
	StatusMatched   = "matched"
	StatusAmbiguous = "ambiguous"
	StatusNoMatch   = "no_match"
	StatusNoTopics  = "no_topics"
)

// Match is one scored topic candidate.
type Match struct {
	TopicID string `json:"topic_id"`
	Score   int    `json:"score"`
}

// Result is the outcome of inferring a topic from a query.
type Result struct {
	Status       string   `json:"status"`
	Confidence   string   `json:"confidence,omitempty"` // high or low
	TopMatch     string   `json:"top_match,omitempty"`
	Score        int      `json:"score,omitempty"`
	Alternatives []Match  `json:"alternatives,omitempty"`
	Suggestions  []string `json:"suggestions,omitempty"` // all topic ids, for no_match
}

const (
	exactPartScore   = 10
	partialScore     = 3
	partialMinLength = 4
)

// Infer scores each topic against the query. A topic id part appearing as a
// whole word in the query scores high; a partial overlap of at least four
// characters scores low. Confidence is high when the top score clearly beats
// the runner-up.
func Infer(query string, reg library.Registry) Result {
	if len(reg.Topics) == 0 {
		return Result{Status: StatusNoTopics}
	}

	queryWords := splitWords(strings.ToLower(query))

	var matches []Match
	for _, topic := range reg.Topics {
		score := scoreTopic(topic.ID, queryWords)
		if score > 0 {
			matches = append(matches, Match{TopicID: topic.ID, Score: score})
		}
	}

	if len(matches) == 0 {
		suggestions := make([]string, len(reg.Topics))
		for i, t := range reg.Topics {
			suggestions[i] = t.ID
		}
		return Result{Status: StatusNoMatch, Suggestions: suggestions}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	top := matches[0]
	res := Result{
		Status:   StatusMatched,
		TopMatch: top.TopicID,
		Score:    top.Score,
	}
	if len(matches) > 1 {
		res.Alternatives = matches[1:]
	}

	if len(matches) == 1 || float64(top.Score) > 1.5*float64(matches[1].Score) {
		res.Confidence = "high"
	} else {
		res.Confidence = "low"
		res.Status = StatusAmbiguous
	}
	return res
}

// scoreTopic matches each underscore-separated part of the topic id against
// the query words.
func scoreTopic(topicID string, queryWords []string) int {
	score := 0
	for _, part := range strings.Split(strings.ToLower(topicID), "_") {
		if part == "" {
			continue
		}
		for _, word := range queryWords {
			if word == part {
				score += exactPartScore
				break
			}
			if len(part) >= partialMinLength && len(word) >= partialMinLength &&
				(strings.Contains(word, part) || strings.Contains(part, word)) {
				score += partialScore
				break
			}
		}
	}
	return score
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
