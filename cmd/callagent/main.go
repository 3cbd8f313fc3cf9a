// callagent: AI receptionist for inbound phone calls.
// Answers the telephony webhook, bridges call audio to speech services,
// and stores a summary of every call.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashikalishaik/ai-call-agent/internal/config"
	"github.com/ashikalishaik/ai-call-agent/internal/log"
	"github.com/ashikalishaik/ai-call-agent/pkg/bridge"
	"github.com/ashikalishaik/ai-call-agent/pkg/notify"
	"github.com/ashikalishaik/ai-call-agent/pkg/responder"
	"github.com/ashikalishaik/ai-call-agent/pkg/store"
	"github.com/ashikalishaik/ai-call-agent/pkg/stt"
	"github.com/ashikalishaik/ai-call-agent/pkg/tts"
	"github.com/ashikalishaik/ai-call-agent/pkg/web"
)

var (
	version = "1.0.0"
	port    = flag.Int("port", 0, "HTTP server port (overrides PORT)")
)

func main() {
	flag.Parse()

	cfg := config.FromEnv()
	if *port != 0 {
		cfg.Port = *port
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("📞 Call Agent v" + version)
	fmt.Println("   AI receptionist for " + cfg.AgentName)
	fmt.Println()

	summaries, err := openStore(cfg)
	if err != nil {
		logger.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer summaries.Close()

	notifier := buildNotifier(cfg)
	respond := buildResponder(cfg)

	synth, err := tts.NewDeepgram(
		tts.WithAPIKey(cfg.DeepgramAPIKey),
	)
	if err != nil {
		logger.Error("synthesizer init failed", "error", err)
		os.Exit(1)
	}
	defer synth.Close()

	registry := bridge.NewRegistry()

	storeBackend := "memory"
	if cfg.StorePath != "" {
		storeBackend = "sqlite"
	}

	server := web.NewServer(web.Config{
		PublicHost:   cfg.PublicHost,
		AgentName:    cfg.AgentName,
		Registry:     registry,
		Store:        summaries,
		StoreBackend: storeBackend,
		NewBridge: func(session *bridge.Session) (*bridge.Bridge, error) {
			// Each call streams over its own transcriber connection.
			transcriber, err := stt.NewDeepgram(
				stt.WithAPIKey(cfg.DeepgramAPIKey),
			)
			if err != nil {
				return nil, err
			}

			return bridge.New(session, bridge.Config{
				STT:       transcriber,
				TTS:       synth,
				Responder: respond,
				Store:     summaries,
				Notifier:  notifier,
				Registry:  registry,
			}), nil
		},
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("starting server",
			"addr", addr,
			"webhook", fmt.Sprintf("http://localhost:%d/incoming-call", cfg.Port))
		if err := server.Listen(addr); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// openStore selects SQLite when a path is configured, otherwise the
// in-memory store with TTL eviction.
func openStore(cfg config.Config) (store.Store, error) {
	if cfg.StorePath != "" {
		return store.OpenSQLite(cfg.StorePath)
	}
	return store.NewMemoryStore(cfg.SummaryTTL), nil
}

// buildNotifier wires email notification when credentials are present.
func buildNotifier(cfg config.Config) notify.Notifier {
	if cfg.SendGridAPIKey == "" || cfg.NotificationEmail == "" {
		log.L().Info("email notification disabled")
		return notify.Noop{}
	}
	n, err := notify.NewSendGrid(cfg.SendGridAPIKey, cfg.NotificationEmail)
	if err != nil {
		log.L().Warn("email notification disabled", "error", err)
		return notify.Noop{}
	}
	return n
}

// buildResponder chains the LLM responder, when configured, in front of
// the rule-based one. The chain itself falls back to a stock utterance
// when every provider fails, so replies never go missing.
func buildResponder(cfg config.Config) responder.Provider {
	persona := responder.Persona{Name: cfg.AgentName, UserInfo: cfg.UserInfo}

	providers := []responder.Provider{}
	if cfg.OpenAIAPIKey != "" {
		llm, err := responder.NewLLM(cfg.OpenAIAPIKey, persona,
			responder.WithModel(cfg.OpenAIModel),
		)
		if err != nil {
			log.L().Warn("llm responder disabled", "error", err)
		} else {
			providers = append(providers, llm)
		}
	}
	providers = append(providers, responder.NewRules(persona))

	chain, err := responder.NewChain(providers...)
	if err != nil {
		return responder.NewRules(persona)
	}
	return chain
}
