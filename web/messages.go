package web

import (
	"encoding/json"
	"fmt"

	"github.com/panyam/vizfix/fixchan"
	"github.com/panyam/vizfix/render"
)

// Client -> server message type tags. fixSyntaxResponse is shared with the
// fix channel protocol: when the browser hosts the assistant, responses come
// back on the same socket.
const (
	typeSourceChanged = "sourceChanged"
	typeRetry         = "retry"
	typeExport        = "export"
	typeState         = "state"
	typeDisplayImage  = "displayImage"
)

// SourceChangedMsg carries a new authored source value.
type SourceChangedMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RetryMsg triggers a manual fix retry.
type RetryMsg struct {
	Type string `json:"type"`
}

// ExportMsg requests a PNG export of the current rendered diagram.
type ExportMsg struct {
	Type       string `json:"type"`
	Background string `json:"background,omitempty"`
}

// StateMsg mirrors the renderer's view state to the client.
type StateMsg struct {
	Type      string `json:"type"`
	Phase     string `json:"phase"`
	SVG       string `json:"svg,omitempty"`
	Error     string `json:"error,omitempty"`
	AutoFixed bool   `json:"autoFixed"`
	Attempts  int    `json:"attempts"`
	Source    string `json:"source,omitempty"`
	Candidate string `json:"candidate,omitempty"`
}

// DisplayImageMsg delivers an exported PNG, base64 encoded.
type DisplayImageMsg struct {
	Type      string `json:"type"`
	PNGBase64 string `json:"pngBase64"`
}

func stateMsg(state render.ViewState) StateMsg {
	return StateMsg{
		Type:      typeState,
		Phase:     state.Phase.String(),
		SVG:       state.SVG,
		Error:     state.ErrMsg,
		AutoFixed: state.AutoFixed,
		Attempts:  state.Attempts,
		Source:    state.Source,
		Candidate: state.Candidate,
	}
}

// decodeClientMessage decodes one inbound payload into its concrete message
// struct. The set of accepted kinds is closed; anything else errors.
func decodeClientMessage(data []byte) (any, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding message envelope: %w", err)
	}
	switch env.Type {
	case typeSourceChanged:
		var msg SourceChangedMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return &msg, nil
	case typeRetry:
		var msg RetryMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return &msg, nil
	case typeExport:
		var msg ExportMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return &msg, nil
	case fixchan.TypeFixResponse:
		return fixchan.DecodeResponse(data)
	default:
		return nil, fmt.Errorf("unknown client message type %q", env.Type)
	}
}
