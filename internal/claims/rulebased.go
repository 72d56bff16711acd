package claims

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/MrWong99/claimwright/pkg/coretypes"
)

// sentenceSplit is a coarse sentence boundary matcher: good enough for
// transcript text, which has no embedded abbreviation periods worth special
// casing.
var sentenceSplit = regexp.MustCompile(`[^.!?]+[.!?]*`)

var numericToken = regexp.MustCompile(`\b\d+([.,]\d+)?%?\b`)
var properNoun = regexp.MustCompile(`\b[A-Z][a-zA-Z]{2,}\b`)
var comparative = regexp.MustCompile(`\b(more|less|better|worse|faster|slower|higher|lower|most|least|best|worst)\b`)
var opinionMarker = regexp.MustCompile(`(?i)\b(i think|i feel|i believe|maybe|probably|in my opinion|i guess|seems like)\b`)
var predictionMarker = regexp.MustCompile(`(?i)\b(will|going to|expect(?:ed|s)?|forecast|predict(?:s|ed)?|by (?:next|end of))\b`)

// ruleBasedExtract segments text into sentences and keeps those carrying a
// checkable claim: a numeric token, a proper-noun span, or a comparative
// marker. Interrogatives and first-person opinion hedges are dropped.
// Surviving sentences are classified fact/prediction by keyword.
func ruleBasedExtract(transcriptID, text string, modelTag string) []coretypes.Claim {
	var out []coretypes.Claim
	ordinal := 0

	for _, m := range sentenceSplit.FindAllStringIndex(text, -1) {
		start, end := m[0], m[1]
		sentence := strings.TrimSpace(text[start:end])
		if sentence == "" {
			continue
		}
		if strings.HasSuffix(sentence, "?") {
			continue
		}
		if opinionMarker.MatchString(sentence) {
			continue
		}

		hasSignal := numericToken.MatchString(sentence) || properNoun.MatchString(sentence) || comparative.MatchString(sentence)
		if !hasSignal {
			continue
		}

		kind := coretypes.ClaimFact
		if predictionMarker.MatchString(sentence) {
			kind = coretypes.ClaimPrediction
		}

		out = append(out, coretypes.Claim{
			ID:             uuid.NewString(),
			TranscriptID:   transcriptID,
			Ordinal:        ordinal,
			SpanStart:      start,
			SpanEnd:        end,
			Text:           sentence,
			Kind:           kind,
			Entities:       extractEntities(sentence, start),
			Confidence:     0.55, // heuristic signal only, deliberately below model-assisted confidence
			ExtractorModel: modelTag,
		})
		ordinal++
	}
	return out
}

// extractEntities finds proper-noun and numeric spans within sentence,
// offsetting positions by base so they align with the full transcript text.
func extractEntities(sentence string, base int) []coretypes.EntityMention {
	var ents []coretypes.EntityMention
	for _, m := range properNoun.FindAllStringIndex(sentence, -1) {
		ents = append(ents, coretypes.EntityMention{
			Surface: sentence[m[0]:m[1]],
			Type:    coretypes.EntityPerson,
			Start:   base + m[0],
			End:     base + m[1],
		})
	}
	for _, m := range numericToken.FindAllStringIndex(sentence, -1) {
		ents = append(ents, coretypes.EntityMention{
			Surface: sentence[m[0]:m[1]],
			Type:    coretypes.EntityNumber,
			Start:   base + m[0],
			End:     base + m[1],
		})
	}
	return ents
}
