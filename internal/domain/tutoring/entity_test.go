package tutoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/google/uuid"
)

func TestCorrectionIsNoOp(t *testing.T) {
	noOp := Correction{
		OriginalSentence:  "I like apples.",
		CorrectedSentence: "I like apples.",
		Corrections:       []CorrectionItem{},
	}
	assert.True(t, noOp.IsNoOp())

	withFix := Correction{
		OriginalSentence:  "i has a apple",
		CorrectedSentence: "I have an apple",
		Corrections:       []CorrectionItem{{Type: CorrectionGrammar}},
	}
	assert.False(t, withFix.IsNoOp())
}

func TestCorrectionConsistent(t *testing.T) {
	assert.True(t, (&Correction{
		OriginalSentence:  "same",
		CorrectedSentence: "same",
	}).Consistent())

	assert.False(t, (&Correction{
		OriginalSentence:  "a",
		CorrectedSentence: "b",
		Corrections:       []CorrectionItem{},
	}).Consistent())

	// A non-empty list makes any sentence pair consistent
	assert.True(t, (&Correction{
		OriginalSentence:  "a",
		CorrectedSentence: "b",
		Corrections:       []CorrectionItem{{Type: CorrectionGrammar}},
	}).Consistent())
}

func TestOptimizationIsNoOp(t *testing.T) {
	assert.True(t, (&Optimization{
		OriginalSentence:  "I like apples.",
		OptimizedSentence: "i like apples.",
	}).IsNoOp())

	assert.True(t, (&Optimization{
		OriginalSentence:  "I like apples.",
		OptimizedSentence: "  I like apples.  ",
	}).IsNoOp())

	assert.False(t, (&Optimization{
		OriginalSentence:  "I like apples.",
		OptimizedSentence: "I am fond of apples.",
	}).IsNoOp())
}

func TestNewConversationTitle(t *testing.T) {
	conv := NewConversation(uuid.New(), "  Hello world  ")
	assert.Equal(t, "Hello world", conv.Title)

	conv = NewConversation(uuid.New(), "")
	assert.Equal(t, "New conversation", conv.Title)

	long := strings.Repeat("很", 80)
	conv = NewConversation(uuid.New(), long)
	assert.Equal(t, strings.Repeat("很", 50), conv.Title)
}

func TestReplyParts(t *testing.T) {
	reply, translation := ReplyParts("That sounds great! ||| 听起来很棒！")
	assert.Equal(t, "That sounds great!", reply)
	assert.Equal(t, "听起来很棒！", translation)

	reply, translation = ReplyParts("Plain English reply.")
	assert.Equal(t, "Plain English reply.", reply)
	assert.Empty(t, translation)

	// Only the first separator splits; any later ones belong to the translation
	reply, translation = ReplyParts("a ||| b ||| c")
	assert.Equal(t, "a", reply)
	assert.Equal(t, "b ||| c", translation)
}
