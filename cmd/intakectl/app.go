package main

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/tbxark/intakeform/command"
	"github.com/tbxark/intakeform/config"
	"github.com/tbxark/intakeform/dialogue"
	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/session"
	"github.com/tbxark/intakeform/store"
	"github.com/tbxark/intakeform/voice"
)

// app holds everything built from the config that the commands share.
type app struct {
	cfg         *config.Config
	log         *logger.Logger
	chatModel   model.ToolCallingChatModel
	redis       *redis.Client
	dialogue    dialogue.Engine
	parser      command.Parser
	transcriber *voice.GoogleTranscriber
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	if cfg.Store.Backend == config.BackendRedis {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Store.RedisAddr, err)
		}
	}

	if cfg.LLM.Provider == config.ProviderOpenAI {
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		a.chatModel = cm
	}

	if a.dialogue, err = a.buildDialogue(); err != nil {
		a.Close()
		return nil, err
	}
	if a.parser, err = a.buildParser(); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Voice.Enabled {
		a.transcriber, err = voice.NewGoogleTranscriber(ctx, voice.SpeechConfig{
			Language:        cfg.Voice.Language,
			Encoding:        cfg.Voice.Encoding,
			SampleRateHertz: int(cfg.Voice.SampleRateHertz),
			Timeout:         cfg.Voice.Timeout,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	log.Info("intakectl configured",
		"provider", cfg.LLM.Provider,
		"mode", cfg.LLM.Mode,
		"store", cfg.Store.Backend,
		"voice", cfg.Voice.Enabled,
	)
	return a, nil
}

func (a *app) buildDialogue() (dialogue.Engine, error) {
	localOpts := []dialogue.LocalOption{dialogue.WithLocalLogger(a.log)}
	if a.redis != nil {
		localOpts = append(localOpts, dialogue.WithStateCache(store.NewRedisCache[dialogue.LocalState](a.redis, a.cfg.Store.TTL)))
	}
	local := dialogue.NewLocal(localOpts...)
	if a.chatModel == nil {
		return local, nil
	}

	trimmer := dialogue.KeepSystemLastNTrimmer{N: a.cfg.LLM.History}
	history := dialogue.NewMemoryHistoryStore(trimmer)
	if a.redis != nil {
		history = dialogue.NewHistoryStore(store.NewRedisCache[[]*schema.Message](a.redis, a.cfg.Store.TTL), trimmer)
	}
	opts := []dialogue.Option{
		dialogue.WithLang(a.cfg.LLM.Lang),
		dialogue.WithHistory(history),
		dialogue.WithLogger(a.log),
	}

	var engine dialogue.Engine
	var err error
	switch a.cfg.LLM.Mode {
	case config.ModeChat:
		engine, err = dialogue.NewChatModelEngine(a.chatModel, opts...)
	default:
		engine, err = dialogue.NewBlockAuthor(a.chatModel, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("create dialogue engine: %w", err)
	}
	if a.cfg.LLM.Failback {
		return dialogue.NewFailback(a.log, engine, local), nil
	}
	return engine, nil
}

func (a *app) buildParser() (command.Parser, error) {
	local := command.NewLocalParser()
	if a.chatModel == nil {
		return local, nil
	}
	tool, err := command.NewToolParser(a.chatModel)
	if err != nil {
		return nil, fmt.Errorf("create command parser: %w", err)
	}
	return command.NewFailback(local, tool), nil
}

// sessions builds a manager whose sessions get a capturer from capturer,
// which may be nil.
func (a *app) sessions(capturer func(threadID string) voice.Capturer) *session.Manager {
	opts := []session.Option{
		session.WithLogger(a.log),
		session.WithQueueSize(a.cfg.Session.QueueSize),
		session.WithDispatchTimeout(a.cfg.Session.DispatchTimeout),
	}
	if a.redis != nil {
		opts = append(opts, session.WithSnapshotCache(store.NewRedisCache[session.Snapshot](a.redis, a.cfg.Store.TTL)))
	}
	if capturer != nil {
		opts = append(opts, session.WithCapturerFactory(capturer))
	}
	return session.NewManager(a.dialogue, opts...)
}

func (a *app) Close() {
	if a.transcriber != nil {
		if err := a.transcriber.Close(); err != nil {
			a.log.Warn("failed to close transcriber", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", "error", err)
		}
	}
	a.log.Sync()
}
