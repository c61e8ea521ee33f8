package conversation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// ErrMalformedOutput is returned when the model reply is not a JSON object.
var ErrMalformedOutput = errors.New("malformed model output")

// OutputSchema constrains the model to answer as the character plus three user replies.
var OutputSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "response": {"type": "string"},
    "user_reply_1": {"type": "string"},
    "user_reply_2": {"type": "string"},
    "user_reply_3": {"type": "string"}
  },
  "required": ["response", "user_reply_1", "user_reply_2", "user_reply_3"],
  "additionalProperties": false
}`)

type wireOutput struct {
	Response   string `mapstructure:"response"`
	UserReply1 string `mapstructure:"user_reply_1"`
	UserReply2 string `mapstructure:"user_reply_2"`
	UserReply3 string `mapstructure:"user_reply_3"`
}

// ParseOutput decodes a model reply. Missing fields decode as empty strings,
// which ends the conversation. Scalars of other types are coerced to text.
func ParseOutput(content string) (domain.Output, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return domain.Output{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	var w wireOutput
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &w,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return domain.Output{}, fmt.Errorf("failed to create output decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return domain.Output{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	return domain.Output{
		Response: w.Response,
		Replies:  [3]string{w.UserReply1, w.UserReply2, w.UserReply3},
	}, nil
}

// SanitizeOutput applies Sanitize to every field.
func SanitizeOutput(o domain.Output) domain.Output {
	o.Response = Sanitize(o.Response)
	for i := range o.Replies {
		o.Replies[i] = Sanitize(o.Replies[i])
	}
	return o
}
