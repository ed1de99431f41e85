package app

import (
	"github.com/ent0n29/speechgate/internal/config"
	"github.com/ent0n29/speechgate/internal/httpapi"
	"github.com/ent0n29/speechgate/internal/observability"
	"github.com/ent0n29/speechgate/internal/pipeline"
)

type VoiceInfo struct {
	Provider     string
	Detail       string
	DefaultVoice string
	OutputFormat string
}

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Runner  *pipeline.Runner
	Metrics *observability.Metrics
	Voice   VoiceInfo
}

// Build wires config, metrics, the credential manager, the synthesizer and the
// HTTP server together.
func Build(cfg config.Config) (*BuildResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	setup, err := resolveSynthesizer(cfg, metrics)
	if err != nil {
		return nil, err
	}
	cfg.VoiceProvider = setup.provider

	runner := pipeline.New(setup.synth, metrics)

	// A nil *credential.Manager must not become a non-nil interface value.
	var creds httpapi.CredentialStatus
	if setup.creds != nil {
		creds = setup.creds
	}
	api := httpapi.New(cfg, runner, creds, metrics)

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Runner:  runner,
		Metrics: metrics,
		Voice: VoiceInfo{
			Provider:     setup.provider,
			Detail:       setup.detail,
			DefaultVoice: cfg.DefaultVoice,
			OutputFormat: cfg.EdgeOutputFormat,
		},
	}, nil
}
