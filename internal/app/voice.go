package app

import (
	"fmt"
	"strings"

	"github.com/ent0n29/speechgate/internal/config"
	"github.com/ent0n29/speechgate/internal/credential"
	"github.com/ent0n29/speechgate/internal/observability"
	"github.com/ent0n29/speechgate/internal/voice"
)

type voiceSetup struct {
	synth    voice.Synthesizer
	creds    *credential.Manager
	provider string
	detail   string
}

func resolveSynthesizer(cfg config.Config, metrics *observability.Metrics) (voiceSetup, error) {
	switch mode := strings.ToLower(strings.TrimSpace(cfg.VoiceProvider)); mode {
	case "edge":
		exchanger := credential.NewEdgeExchanger(cfg.EdgeAuthURL, cfg.EdgeUserAgent, nil)
		creds := credential.NewManager(exchanger, cfg.CredentialRefreshMargin, metrics)
		synth := voice.NewEdgeSynthesizer(creds, voice.EdgeConfig{
			EndpointOverride: cfg.EdgeEndpointOverride,
			UserAgent:        cfg.EdgeUserAgent,
			HTTPTimeout:      cfg.BackendHTTPTimeout,
		}, metrics)
		detail := "edge read-aloud (region from credential)"
		if cfg.EdgeEndpointOverride != "" {
			detail = "edge read-aloud via " + cfg.EdgeEndpointOverride
		}
		return voiceSetup{synth: synth, creds: creds, provider: "edge", detail: detail}, nil
	case "mock":
		return voiceSetup{synth: voice.NewMockSynthesizer(), provider: "mock", detail: "offline echo synthesizer"}, nil
	default:
		return voiceSetup{}, fmt.Errorf("invalid VOICE_PROVIDER: %q (expected edge|mock)", cfg.VoiceProvider)
	}
}
