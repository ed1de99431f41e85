package httpapi

import (
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/ent0n29/speechgate/internal/voice"
)

type listModelsResponse struct {
	Object string `json:"object"`
	openai.ModelsList
}

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	ids := voice.ModelIDs()
	models := make([]openai.Model, 0, len(ids))
	for _, id := range ids {
		models = append(models, openai.Model{
			ID:        id,
			Object:    "model",
			OwnedBy:   "speechgate",
			CreatedAt: s.startedAt.Unix(),
		})
	}
	respondJSON(w, http.StatusOK, listModelsResponse{
		Object:     "list",
		ModelsList: openai.ModelsList{Models: models},
	})
}

type listVoicesResponse struct {
	DefaultVoice string             `json:"default_voice"`
	Aliases      []voice.VoiceAlias `json:"aliases"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, listVoicesResponse{
		DefaultVoice: s.cfg.DefaultVoice,
		Aliases:      voice.VoiceAliases(),
	})
}
