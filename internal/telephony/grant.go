package telephony

import (
	"errors"
	"strconv"
	"time"

	"pharmline/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotConfigured means the Twilio credential set is absent; only the
// telephony path is disabled, the rest of the service keeps running.
var ErrNotConfigured = errors.New("telephony: not configured")

// GrantService mints short-lived Twilio voice access tokens. The token scopes
// its holder to make and receive calls under one routing identity; clients
// are expected to refresh before the fixed expiry horizon.
type GrantService struct {
	cfg   config.TwilioConfig
	clock func() time.Time
}

func NewGrantService(cfg config.TwilioConfig) *GrantService {
	return &GrantService{cfg: cfg, clock: time.Now}
}

func (g *GrantService) Configured() bool { return g.cfg.Configured() }

// Mint issues a signed voice grant for the given identity.
// Token shape follows the Twilio access-token JWT format: HS256, content type
// twilio-fpa;v=1, grants payload with identity plus incoming/outgoing voice.
func (g *GrantService) Mint(identity string) (string, error) {
	if !g.cfg.Configured() {
		return "", ErrNotConfigured
	}
	if identity == "" {
		return "", errors.New("telephony: identity required")
	}

	now := g.clock().UTC()
	claims := jwt.MapClaims{
		"jti": g.cfg.APIKeySID + "-" + strconv.FormatInt(now.Unix(), 10),
		"iss": g.cfg.APIKeySID,
		"sub": g.cfg.AccountSID,
		"iat": now.Unix(),
		"exp": now.Add(g.cfg.GrantTTL).Unix(),
		"grants": map[string]any{
			"identity": identity,
			"voice": map[string]any{
				"outgoing": map[string]any{"application_sid": g.cfg.TwimlAppSID},
				"incoming": map[string]any{"allow": true},
			},
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["cty"] = "twilio-fpa;v=1"
	return t.SignedString([]byte(g.cfg.APIKeySecret))
}
