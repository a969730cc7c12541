package tutoring

import (
	"fmt"
	"strings"

	"github.com/chatling/v2/internal/domain/tutoring"
)

const (
	maxContextTurns   = 10
	maxTurnRunes      = 100
	noHistorySentence = "This is the start of the conversation; there is no prior context."
)

// Topic keywords checked in order; a message contributes to at most one
// topic, the first whose keyword it contains.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"study", []string{"study", "learn", "school", "exam", "book", "english", "学习", "考试", "学校"}},
	{"travel", []string{"travel", "trip", "vacation", "visit", "flight", "旅行", "旅游", "度假"}},
	{"work", []string{"work", "job", "career", "office", "meeting", "工作", "职业", "公司"}},
	{"food", []string{"food", "eat", "restaurant", "cook", "meal", "美食", "吃", "餐厅"}},
	{"entertainment", []string{"movie", "film", "music", "game", "art", "电影", "音乐", "游戏"}},
}

// SummarizeContext renders recent history into the deterministic context
// block the task prompts embed. Identical history always produces the
// identical block: the last ten turns numbered and truncated, plus a topic
// guess and a tone hint when there is enough signal.
func SummarizeContext(history []tutoring.Turn) string {
	if len(history) == 0 {
		return noHistorySentence
	}

	recent := history
	if len(recent) > maxContextTurns {
		recent = recent[len(recent)-maxContextTurns:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent conversation (last %d messages):\n", len(recent))
	for i, turn := range recent {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, displayRole(turn.Role), truncateRunes(turn.Content, maxTurnRunes))
	}

	if topic := dominantTopic(recent); topic != "" {
		fmt.Fprintf(&b, "Main topic: %s\n", topic)
	}
	fmt.Fprintf(&b, "Tone: %s", toneOf(recent))
	return b.String()
}

func displayRole(role string) string {
	switch role {
	case tutoring.RoleAssistant:
		return "Tutor"
	default:
		return "Student"
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// dominantTopic picks the topic hit by the most messages. Ties resolve to
// the topic seen first, and fewer than two messages is too little signal.
func dominantTopic(turns []tutoring.Turn) string {
	if len(turns) < 2 {
		return ""
	}
	counts := make(map[string]int)
	var order []string
	for _, turn := range turns {
		lower := strings.ToLower(turn.Content)
		for _, entry := range topicKeywords {
			if containsAny(lower, entry.keywords) {
				if counts[entry.topic] == 0 {
					order = append(order, entry.topic)
				}
				counts[entry.topic]++
				break
			}
		}
	}
	best := ""
	bestCount := 0
	for _, topic := range order {
		if counts[topic] > bestCount {
			best = topic
			bestCount = counts[topic]
		}
	}
	return best
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// toneOf flags the formal register when the polite second-person pronoun
// appears anywhere in recent history.
func toneOf(turns []tutoring.Turn) string {
	for _, turn := range turns {
		if strings.Contains(turn.Content, "您") {
			return "formal"
		}
	}
	return "friendly"
}
