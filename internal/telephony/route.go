package telephony

import "strings"

// RouteRequest is the raw leg input: who was dialed, who is calling, and the
// correlation metadata the client attached.
type RouteRequest struct {
	To         string
	From       string
	RequestID  string
	CallerName string
}

// RoutingInstruction tells the bridge which identity to connect an inbound
// leg to. The metadata fields ride along as leg parameters so the receiving
// client can correlate the leg with a CallRequest.
type RoutingInstruction struct {
	TargetIdentity string

	CallerIdentity string
	CallerName     string
	RequestID      string
}

// Router resolves inbound legs to a target identity.
type Router struct {
	// defaultIdentity is the configured staff routing identity, used when the
	// leg carries no explicit target.
	defaultIdentity string
}

func NewRouter(defaultIdentity string) Router {
	return Router{defaultIdentity: defaultIdentity}
}

// RouteIncoming produces the instruction for one inbound leg. The dialed To
// wins when present; otherwise the leg goes to the staff routing identity.
func (r Router) RouteIncoming(req RouteRequest) RoutingInstruction {
	target := strings.TrimSpace(req.To)
	if target == "" {
		target = r.defaultIdentity
	}
	return RoutingInstruction{
		TargetIdentity: strings.TrimPrefix(target, "client:"),
		CallerIdentity: strings.TrimPrefix(req.From, "client:"),
		CallerName:     req.CallerName,
		RequestID:      req.RequestID,
	}
}
