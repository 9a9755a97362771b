package services

import (
	"github.com/voxchat/voxchat-backend/internal/analysis"
	"github.com/voxchat/voxchat-backend/internal/config"
	"github.com/voxchat/voxchat-backend/internal/providers"
	"github.com/voxchat/voxchat-backend/internal/speech"
)

// Services holds all service instances used by the API layer.
type Services struct {
	Chat      *ChatService
	Summarize *SummarizeService
	Analyzer  *analysis.Analyzer

	// Voice engines for the realtime channel.
	Recognizer  speech.Recognizer
	Synthesizer speech.Synthesizer
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, provider providers.Provider, recognizer speech.Recognizer, synthesizer speech.Synthesizer) *Services {
	return &Services{
		Chat:        NewChatService(provider, cfg.Chat.Timeout),
		Summarize:   NewSummarizeService(provider, cfg.Summary.Timeout),
		Analyzer:    analysis.New(),
		Recognizer:  recognizer,
		Synthesizer: synthesizer,
	}
}
