package provider

import (
	"context"

	"github.com/rs/zerolog"
)

// Supported provider identifiers.
const (
	NameSendGrid = "sendgrid"
	NameSMTP     = "smtp"
)

// Settings selects the configured provider and carries both adapters' config.
type Settings struct {
	Provider string
	SendGrid SendGridConfig
	SMTP     SMTPConfig
}

// Snapshot reports which providers are usable.
type Snapshot struct {
	Configured    string `json:"email_provider"`
	SendGridReady bool   `json:"sendgrid_configured"`
	SMTPReady     bool   `json:"smtp_configured"`
}

// State holds the providers that initialized successfully at startup.
// It is immutable after construction and safe for concurrent use.
type State struct {
	configured string
	hosted     Provider
	relay      Provider
}

// NewState builds a State from already-initialized providers; either may be nil.
func NewState(configured string, hosted, relay Provider) *State {
	return &State{configured: configured, hosted: hosted, relay: relay}
}

// Init initializes providers once at startup. When the hosted API is
// configured but cannot initialize, the SMTP relay is tried instead. A relay
// that fails verification is left unusable. Init never fails; callers detect
// an empty State through Select.
func Init(ctx context.Context, s Settings, client HTTPClient, log zerolog.Logger) *State {
	st := &State{configured: s.Provider}

	if s.Provider == NameSendGrid {
		sg, err := NewSendGrid(s.SendGrid, client)
		if err == nil {
			st.hosted = sg
			log.Info().Str("provider", NameSendGrid).Msg("email provider initialized")
			return st
		}
		log.Error().Err(err).Msg("sendgrid initialization failed, falling back to smtp")
	}

	relay, err := NewSMTP(s.SMTP, log)
	if err != nil {
		log.Error().Err(err).Msg("smtp initialization failed")
		return st
	}
	if err := relay.Verify(ctx); err != nil {
		log.Error().Err(err).Str("host", s.SMTP.Host).Msg("smtp verification failed")
		return st
	}
	st.relay = relay
	log.Info().Str("provider", NameSMTP).Str("host", s.SMTP.Host).Msg("email provider initialized")
	return st
}

// Select returns the provider to use: the hosted API when usable, else the
// SMTP relay. ok is false when neither is usable.
func (s *State) Select() (p Provider, ok bool) {
	if s.hosted != nil {
		return s.hosted, true
	}
	if s.relay != nil {
		return s.relay, true
	}
	return nil, false
}

// Snapshot returns the current readiness of each provider.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Configured:    s.configured,
		SendGridReady: s.hosted != nil,
		SMTPReady:     s.relay != nil,
	}
}
