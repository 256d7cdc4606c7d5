package sms

import (
	"encoding/xml"
	"fmt"
)

// messagingResponse is the TwiML document the webhook answers with
type messagingResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// TwiML renders a reply body as a TwiML messaging response
func TwiML(message string) string {
	out, err := xml.Marshal(messagingResponse{Message: message})
	if err != nil {
		// Marshalling a two-element struct cannot realistically fail;
		// keep the webhook answering regardless.
		return "<Response></Response>"
	}
	return fmt.Sprintf("%s%s", xml.Header, out)
}
