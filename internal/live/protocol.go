// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package live

import "encoding/json"

// Wire frame type discriminators. Outbound: setup, input_text, commit.
// Inbound: token/response_chunk, function_call, response_end/done/server_close,
// error. The inbound set is closed; anything else decodes as an error event.
const (
	frameSetup     = "setup"
	frameInputText = "input_text"
	frameCommit    = "commit"

	frameToken         = "token"
	frameResponseChunk = "response_chunk"
	frameFunctionCall  = "function_call"
	frameResponseEnd   = "response_end"
	frameDone          = "done"
	frameServerClose   = "server_close"
	frameError         = "error"
)

// ToolSchema declares one callable tool to the remote side.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"`
}

// setupFrame is sent exactly once per connection, before any input.
type setupFrame struct {
	Type           string         `json:"type"`
	Model          string         `json:"model"`
	Config         setupConfig    `json:"config"`
	SessionContext map[string]any `json:"sessionContext,omitempty"`
}

type setupConfig struct {
	SystemInstruction  string           `json:"systemInstruction"`
	Tools              []ToolSchema     `json:"tools"`
	ResponseModalities []string         `json:"responseModalities"`
	TurnDetection      map[string]any   `json:"turnDetection"`
	GenerationConfig   generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type inputTextFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type commitFrame struct {
	Type string `json:"type"`
}

// inboundFrame is the union of all fields an inbound frame may carry.
type inboundFrame struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Name    string         `json:"name,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Message string         `json:"message,omitempty"`
}

// EventType classifies a decoded inbound event.
type EventType string

const (
	// EventText carries one streamed output fragment.
	EventText EventType = "text"
	// EventFunctionCall carries a tool invocation request.
	EventFunctionCall EventType = "function_call"
	// EventEnd marks the clean end of the remote response.
	EventEnd EventType = "end"
	// EventError carries a remote or framing error; it also ends the turn.
	EventError EventType = "error"
)

// Event is one demultiplexed inbound message.
type Event struct {
	Type EventType
	Text string
	Call *FunctionCall
	Err  string
}

// FunctionCall is the remote side's request to invoke a named tool.
type FunctionCall struct {
	Name string
	Args map[string]any
}

// DecodeEvent maps a raw inbound frame onto the closed event set. Unparseable
// payloads and unrecognized types are structured errors, never dropped.
func DecodeEvent(raw []byte) Event {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Event{Type: EventError, Err: "invalid frame: " + err.Error()}
	}

	switch frame.Type {
	case frameToken, frameResponseChunk:
		return Event{Type: EventText, Text: frame.Text}
	case frameFunctionCall:
		return Event{Type: EventFunctionCall, Call: &FunctionCall{Name: frame.Name, Args: frame.Args}}
	case frameResponseEnd, frameDone, frameServerClose:
		return Event{Type: EventEnd}
	case frameError:
		msg := frame.Message
		if msg == "" {
			msg = "unspecified remote error"
		}
		return Event{Type: EventError, Err: msg}
	default:
		return Event{Type: EventError, Err: "unrecognized frame type: " + frame.Type}
	}
}
