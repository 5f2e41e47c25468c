package telephony

import (
	"encoding/xml"
	"fmt"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

type twimlStream struct {
	URL string `xml:"url,attr"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type voiceResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Say     string       `xml:"Say,omitempty"`
	Connect twimlConnect `xml:"Connect"`
}

type messagingResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// VoiceStreamTwiML renders the call instructions that greet the callee and
// connect the call's audio to the media-stream websocket at streamURL.
func VoiceStreamTwiML(greeting, streamURL string) (string, error) {
	doc := voiceResponse{
		Say:     greeting,
		Connect: twimlConnect{Stream: twimlStream{URL: streamURL}},
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("telephony: render voice twiml: %w", err)
	}
	return xmlHeader + string(out), nil
}

// SMSReplyTwiML renders the auto-reply for an incoming SMS webhook.
func SMSReplyTwiML(body string) (string, error) {
	out, err := xml.Marshal(messagingResponse{Message: body})
	if err != nil {
		return "", fmt.Errorf("telephony: render sms twiml: %w", err)
	}
	return xmlHeader + string(out), nil
}
