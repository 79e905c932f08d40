package producer

import (
	"fmt"
	"sort"
	"strings"
)

// Reflection is the synthesized one-shot reply, shared by the journal
// endpoint and the token stream.
type Reflection struct {
	Response       string
	ReasoningTrace string
	Archetype      string
	Confidence     float64
	IntegrityScore float64
}

// archetypeTriggers maps absolutist or self-diminishing phrasing to the
// shadow archetype it tends to signal.
var archetypeTriggers = map[string]string{
	"always":  "The Tyrant",
	"never":   "The Victim",
	"must":    "The Tyrant",
	"should":  "The Martyr",
	"alone":   "The Wounded Child",
	"failure": "The Victim",
	"failed":  "The Victim",
	"sorry":   "The Martyr",
	"why":     "The Sage",
}

// Reflect synthesizes a deterministic reflection for a journal entry.
// Depth scales how elaborate the response is; it carries no semantic
// weight beyond length.
func Reflect(content string, depth int) Reflection {
	themes := keywords(content, 3)
	theme := "what you wrote"
	if len(themes) > 0 {
		theme = fmt.Sprintf("%q", themes[0])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "I hear the weight in %s. ", theme)
	sb.WriteString("Notice the pattern before judging it: the mind narrates faster than it observes. ")
	if len(themes) > 1 {
		fmt.Fprintf(&sb, "The thread connecting %q and %q deserves a slower look. ", themes[0], themes[1])
	}
	for i := 0; i < depth; i++ {
		sb.WriteString("Hold the observation a moment longer before reaching for a conclusion. ")
	}
	sb.WriteString("What would remain true if the urgency fell away?")

	archetype, confidence, trigger := detectArchetype(content)

	trace := fmt.Sprintf("[themes: %s] [mode: reflective]", strings.Join(themes, ", "))
	if trigger != "" {
		trace += fmt.Sprintf(" [trigger: %q]", trigger)
	}

	return Reflection{
		Response:       sb.String(),
		ReasoningTrace: trace,
		Archetype:      archetype,
		Confidence:     confidence,
		IntegrityScore: 0.97,
	}
}

// detectArchetype scans for trigger phrasing. Confidence grows with
// repeated hits on the same archetype.
func detectArchetype(content string) (archetype string, confidence float64, trigger string) {
	counts := map[string]int{}
	lower := strings.ToLower(content)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		if a, ok := archetypeTriggers[w]; ok {
			counts[a]++
			if counts[a] > counts[archetype] || archetype == "" {
				archetype = a
				trigger = w
			}
		}
	}
	if archetype == "" {
		return "None", 0, ""
	}
	confidence = 0.5 + 0.15*float64(counts[archetype])
	if confidence > 0.95 {
		confidence = 0.95
	}
	return archetype, confidence, trigger
}

// keywords picks the n longest distinct words as crude themes.
func keywords(content string, n int) []string {
	seen := map[string]bool{}
	var words []string
	for _, w := range strings.Fields(strings.ToLower(content)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) >= 4 && !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	sort.SliceStable(words, func(i, j int) bool {
		return len(words[i]) > len(words[j])
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// Fragments splits a response into the token fragments streamed during
// the sustain phase. Whitespace is preserved so concatenation
// reconstructs the response exactly.
func Fragments(response string) []string {
	var out []string
	start := 0
	for i := 0; i < len(response); i++ {
		if response[i] == ' ' {
			out = append(out, response[start:i+1])
			start = i + 1
		}
	}
	if start < len(response) {
		out = append(out, response[start:])
	}
	return out
}
