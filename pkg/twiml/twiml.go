// Package twiml builds TwiML voice response documents.
//
// Only the verbs the call agent needs are implemented: Say, Pause,
// Hangup, and Connect/Stream for opening a bidirectional media stream.
package twiml

import (
	"encoding/xml"
)

// ContentType is the MIME type for TwiML responses.
const ContentType = "application/xml"

// VoiceResponse accumulates TwiML verbs in order.
type VoiceResponse struct {
	verbs []any
}

type sayVerb struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type pauseVerb struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type hangupVerb struct {
	XMLName xml.Name `xml:"Hangup"`
}

type streamNoun struct {
	XMLName xml.Name `xml:"Stream"`
	URL     string   `xml:"url,attr"`
}

type connectVerb struct {
	XMLName xml.Name `xml:"Connect"`
	Stream  streamNoun
}

type responseDoc struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// New creates an empty voice response.
func New() *VoiceResponse {
	return &VoiceResponse{}
}

// Say appends a spoken message.
func (r *VoiceResponse) Say(text string) *VoiceResponse {
	r.verbs = append(r.verbs, sayVerb{Text: text})
	return r
}

// SayVoice appends a spoken message with an explicit provider voice.
func (r *VoiceResponse) SayVoice(voice, text string) *VoiceResponse {
	r.verbs = append(r.verbs, sayVerb{Voice: voice, Text: text})
	return r
}

// Pause appends a silence of the given length in seconds.
func (r *VoiceResponse) Pause(seconds int) *VoiceResponse {
	r.verbs = append(r.verbs, pauseVerb{Length: seconds})
	return r
}

// Hangup appends a hangup verb, ending the call.
func (r *VoiceResponse) Hangup() *VoiceResponse {
	r.verbs = append(r.verbs, hangupVerb{})
	return r
}

// ConnectStream appends a Connect verb opening a bidirectional media
// stream to the given WebSocket URL.
func (r *VoiceResponse) ConnectStream(url string) *VoiceResponse {
	r.verbs = append(r.verbs, connectVerb{Stream: streamNoun{URL: url}})
	return r
}

// Render serializes the response to a TwiML document.
func (r *VoiceResponse) Render() ([]byte, error) {
	doc, err := xml.Marshal(responseDoc{Verbs: r.verbs})
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), doc...), nil
}

// RenderString serializes the response, returning an empty document on
// marshal failure so callers always have something safe to send.
func (r *VoiceResponse) RenderString() string {
	out, err := r.Render()
	if err != nil {
		return xml.Header + "<Response></Response>"
	}
	return string(out)
}
