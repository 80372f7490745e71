package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// contract lists every payload type keyed by its message type. It exists
// only to be reflected into a schema document.
type contract struct {
	Join     JoinMsg      `json:"join" jsonschema:"description=client: enter a session"`
	Move     DirectionMsg `json:"move" jsonschema:"description=client: step one cell"`
	Punch    DirectionMsg `json:"punch" jsonschema:"description=client: punch; payload optional, defaults to facing"`
	Welcome  WelcomeMsg   `json:"welcome"`
	State    GameState    `json:"state"`
	Round    RoundMsg     `json:"round"`
	Rejected RejectedMsg  `json:"rejected"`
	Effect   EffectMsg    `json:"effect"`
	ReadySet ReadySetMsg  `json:"ready_set"`
	Handoff  HandoffMsg   `json:"handoff"`
	Error    ErrorMsg     `json:"error"`
}

// Schema reflects the message contract into a JSON Schema document
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(&contract{})
	s.Title = "push-me wire contract"
	s.Description = "Payloads carried in the d field of {t, d} envelopes, keyed by t."
	return s
}

// SchemaJSON returns the indented schema document
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
