package conversation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/llmvn/pkg/conversation"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"he’s—gone…", "he's-gone..."},
		{"10–20", "10-20"},
		{"“quoted” ‘single’", `"quoted" 'single'`},
		{"plain ascii", "plain ascii"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
		{"bell\a and \x1b[31mescape", "bell and [31mescape"},
		{"café", "café"},
	}

	for _, tt := range cases {
		assert.Equal(t, tt.want, conversation.Sanitize(tt.input), "input %q", tt.input)
	}
}

func TestParseOutput(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		out, err := conversation.ParseOutput(`{"response":"Hi","user_reply_1":"a","user_reply_2":"b","user_reply_3":"c"}`)
		require.NoError(t, err)
		assert.Equal(t, "Hi", out.Response)
		assert.Equal(t, [3]string{"a", "b", "c"}, out.Replies)
		assert.False(t, out.IsEndOfConversation())
	})

	t.Run("missing reply ends conversation", func(t *testing.T) {
		out, err := conversation.ParseOutput(`{"response":"Farewell","user_reply_1":"a"}`)
		require.NoError(t, err)
		assert.True(t, out.IsEndOfConversation())
	})

	t.Run("numbers are coerced", func(t *testing.T) {
		out, err := conversation.ParseOutput(`{"response":"Pick","user_reply_1":1,"user_reply_2":2,"user_reply_3":3}`)
		require.NoError(t, err)
		assert.Equal(t, [3]string{"1", "2", "3"}, out.Replies)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := conversation.ParseOutput("Sure! Here is my answer.")
		assert.ErrorIs(t, err, conversation.ErrMalformedOutput)
	})

	t.Run("array", func(t *testing.T) {
		_, err := conversation.ParseOutput(`["a"]`)
		assert.ErrorIs(t, err, conversation.ErrMalformedOutput)
	})
}

func TestDialogue_Interact(t *testing.T) {
	model := tests.NewModel(
		domain.Output{Response: "I’m well…", Replies: [3]string{"a", "b", "c"}},
		domain.Output{Response: "Goodbye", Replies: [3]string{"d", "", "f"}},
	)
	ch := domain.Character{Name: "Ada", ModelName: "vn-ada"}
	d := conversation.New(model, ch, time.Date(2025, 10, 25, 20, 0, 0, 0, time.UTC))
	ctx := context.Background()

	out, err := d.Interact(ctx, "How are you?")
	require.NoError(t, err)
	assert.Equal(t, "I'm well...", out.Response)
	assert.False(t, out.IsEndOfConversation())

	out, err = d.Interact(ctx, "b")
	require.NoError(t, err)
	assert.True(t, out.IsEndOfConversation())

	record := d.Record()
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, []domain.TranscriptEntry{
		{Speaker: domain.SpeakerUser, Text: "How are you?"},
		{Speaker: domain.SpeakerCharacter, Text: "I'm well..."},
		{Speaker: domain.SpeakerUser, Text: "b"},
		{Speaker: domain.SpeakerCharacter, Text: "Goodbye"},
	}, record.Transcript)
	require.Len(t, record.History, 4)
	assert.Equal(t, domain.RoleUser, record.History[0].Role)
	assert.Equal(t, domain.RoleAssistant, record.History[1].Role)

	reqs := model.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "vn-ada", reqs[0].Model)
	assert.Len(t, reqs[0].Messages, 1)
	assert.Len(t, reqs[1].Messages, 3)
	assert.JSONEq(t, string(conversation.OutputSchema), string(reqs[1].Schema))
}

func TestDialogue_ModelFailureKeepsHistory(t *testing.T) {
	model := tests.NewModel()
	model.Err = errors.New("connection refused")
	d := conversation.New(model, domain.Character{Name: "Ada", ModelName: "vn-ada"}, time.Now())

	_, err := d.Interact(context.Background(), "Hello")
	require.Error(t, err)
	assert.Empty(t, d.Record().History)
	assert.Len(t, d.Record().Transcript, 1)
}
