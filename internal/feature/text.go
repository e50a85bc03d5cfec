package feature

import (
	"math"
	"strings"
)

// Word dictionaries backing the text feature slots. These are static
// configuration data matched against the trained model's feature
// definitions; changing them requires retraining.
var (
	negativeWords = wordSet(
		"scared", "afraid", "terrified", "frightened", "fearful", "fear",
		"help", "please", "stop", "crying", "cry", "tears",
		"hurt", "hurting", "pain", "painful", "ache",
		"angry", "mad", "furious", "rage", "hate",
		"sad", "depressed", "miserable", "unhappy", "upset",
		"attack", "attacking", "danger", "dangerous", "threat",
		"emergency", "urgent", "critical", "serious",
		"no", "dont", "never", "cant",
		"wrong", "bad", "terrible", "awful", "horrible",
		"alone", "lonely", "abandoned", "lost",
		"screaming", "yelling", "shouting",
	)

	positiveWords = wordSet(
		"happy", "joy", "joyful", "excited", "great",
		"good", "wonderful", "amazing", "excellent", "fantastic",
		"love", "loving", "loved", "glad", "pleased",
		"fine", "okay", "alright", "safe", "secure",
		"calm", "peaceful", "relaxed", "comfortable",
		"smile", "smiling", "laugh", "laughing", "fun",
	)

	criticalWords = wordSet(
		"help", "rape", "murder", "kill", "police", "call", "emergency", "save", "dying",
	)

	fearWords = wordSet(
		"scared", "afraid", "terrified", "frightened", "fearful", "fear",
		"nervous", "anxious", "worried", "panic", "panicking",
		"threat", "danger", "dangerous", "threatening",
	)

	angerWords = wordSet(
		"angry", "mad", "furious", "rage", "hate", "hating",
		"annoyed", "irritated", "frustrated", "infuriated",
		"stop", "enough", "leave",
	)
)

func wordSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// tokenize lowercases text and splits it into word tokens on non-letter,
// non-digit boundaries.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	return r == '\'' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r > 127
}

// textFeatures computes slots 0..7 from one transcript. Apostrophes are
// stripped from tokens so "don't" matches "dont" in the dictionaries.
func textFeatures(text string) (out [8]float64) {
	words := tokenize(text)
	if len(words) == 0 {
		out[4] = 50 // neutral sentiment
		return out
	}

	var (
		hasKeywords   bool
		isCritical    bool
		keywordThreat float64
		negCount      int
		posCount      int
		fearCount     int
		angerCount    int
	)
	for _, w := range words {
		w = strings.ReplaceAll(w, "'", "")
		if _, ok := negativeWords[w]; ok {
			hasKeywords = true
			keywordThreat += 10
			negCount++
		}
		if _, ok := criticalWords[w]; ok {
			isCritical = true
			keywordThreat += 50
		}
		if _, ok := positiveWords[w]; ok {
			posCount++
		}
		if _, ok := fearWords[w]; ok {
			fearCount++
		}
		if _, ok := angerWords[w]; ok {
			angerCount++
		}
	}

	if hasKeywords {
		out[0] = 1
	}
	out[1] = math.Min(keywordThreat, 100)
	if isCritical {
		out[2] = 1
	}

	if negCount > posCount {
		out[3] = 1
	}
	sentiment := 50.0
	if negCount+posCount > 0 {
		ratio := float64(negCount) / float64(negCount+posCount)
		sentiment = 50 + ratio*50
	}
	out[4] = sentiment

	fearScore := math.Min(float64(fearCount)*20, 100)
	angerScore := math.Min(float64(angerCount)*20, 100)
	out[5] = math.Max(fearScore, angerScore)

	stress := fearScore*0.4 + angerScore*0.3
	if sentiment > 60 {
		stress += 20
	}
	out[6] = math.Min(stress, 100)
	out[7] = fearScore

	return out
}
