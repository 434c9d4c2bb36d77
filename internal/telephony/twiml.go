package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
)

// Minimal Twilio Markup Language response builder. It intentionally avoids
// any provider SDK dependency; only the verbs this service emits exist here.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlReject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

type twimlDial struct {
	XMLName xml.Name     `xml:"Dial"`
	Client  *twimlClient `xml:"Client,omitempty"`
}

type twimlClient struct {
	Identity   string           `xml:"Identity"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// RenderRoutingTwiML maps a routing instruction to a Dial/Client verb with
// the correlation metadata attached as leg parameters.
func RenderRoutingTwiML(in RoutingInstruction) (string, error) {
	if in.TargetIdentity == "" {
		return "", errors.New("telephony: target identity required")
	}

	client := &twimlClient{Identity: in.TargetIdentity}
	addParam := func(name, value string) {
		if value != "" {
			client.Parameters = append(client.Parameters, twimlParameter{Name: name, Value: value})
		}
	}
	addParam("callerName", in.CallerName)
	addParam("callerIdentity", in.CallerIdentity)
	addParam("requestId", in.RequestID)

	var r twimlResponse
	r.Verbs = append(r.Verbs, twimlDial{Client: client})
	return encodeTwiML(r)
}

// RenderRejectTwiML answers a leg that cannot be routed.
func RenderRejectTwiML() (string, error) {
	var r twimlResponse
	r.Verbs = append(r.Verbs, twimlReject{Reason: "busy"})
	return encodeTwiML(r)
}

func encodeTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
