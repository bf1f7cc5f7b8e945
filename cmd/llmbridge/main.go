package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	"github.com/steelforge/llmbridge/backend"
	"github.com/steelforge/llmbridge/bridge"
	"github.com/steelforge/llmbridge/catalog"
	"github.com/steelforge/llmbridge/chatclient"
	"github.com/steelforge/llmbridge/config"
	"github.com/steelforge/llmbridge/debugui"
	"github.com/steelforge/llmbridge/log"
	"github.com/steelforge/llmbridge/model"
	"github.com/steelforge/llmbridge/store"
)

func main() {
	configPath := flag.String("config", "bridge.ini", "Path to the bridge's INI config file")
	debugAddr := flag.String("debug-addr", "", "Address for the local debug dashboard, e.g. 127.0.0.1:8090 (disabled if empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Log.Errorf("load config: %v", err)
		os.Exit(1)
	}

	log.Log.Infof("=== LLM Bridge ===")
	log.Log.Infof("bot prefix: %s, session db: %s", cfg.BotPrefix, cfg.SessionDBPath)

	st, err := store.NewSQLiteStore(cfg.SessionDBPath)
	if err != nil {
		log.Log.Errorf("open session store: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	be, err := backend.NewOllamaBackend(cfg.OllamaBaseURL)
	if err != nil {
		log.Log.Errorf("create ollama backend: %v", err)
		os.Exit(1)
	}

	prefixConfigs, err := config.BuildPrefixConfigs(cfg.ModelPrefixes)
	if err != nil {
		log.Log.Errorf("build model prefix configs: %v", err)
		os.Exit(1)
	}
	cat := catalog.New(be, prefixConfigs, cfg.DefaultModel, cfg.DefaultModelTag, cfg.ExcludedModels)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cat.Refresh(ctx); err != nil {
		log.Log.Errorf("refresh model catalog: %v", err)
		os.Exit(1)
	}
	log.Log.Infof("loaded %d models from backend", len(cat.List()))

	chat, err := chatclient.NewDiscordClient(cfg.DiscordAPIKey)
	if err != nil {
		log.Log.Errorf("connect to discord: %v", err)
		os.Exit(1)
	}
	defer chat.Close()

	b := bridge.New(bridge.Config{
		AdminID:               cfg.AdminID,
		BotPrefix:             cfg.BotPrefix,
		EditDelay:             cfg.EditDelay,
		MaxMessagesForContext: cfg.MaxMessagesForContext,
		DefaultSystemPrompt:   cfg.DefaultSystemPrompt,
	}, st, cat, be, chat, log.Log)

	chat.Session().AddHandler(newMessageHandler(b))

	if *debugAddr != "" {
		dash := debugui.New(st)
		go func() {
			log.Log.Infof("debug dashboard listening on %s", *debugAddr)
			if err := dash.Run(*debugAddr); err != nil {
				log.Log.Errorf("debug dashboard exited: %v", err)
			}
		}()
	}

	log.Log.Infof("bridge is running, press ctrl-c to stop")
	<-ctx.Done()
	log.Log.Infof("shutting down")
}

// newMessageHandler builds the discordgo callback that turns an incoming
// message into a bridge.CommandRequest and posts whatever single-shot reply
// Dispatch returns ($llm manages its own reply progressively and returns
// an empty string here).
func newMessageHandler(b *bridge.Bridge) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}

		ownerID, err := parseSnowflake(m.Author.ID)
		if err != nil {
			log.Log.Warnf("discord message from unparseable author id %q: %v", m.Author.ID, err)
			return
		}

		ctx := context.Background()
		reply, ok, err := b.Dispatch(ctx, bridge.CommandRequest{
			ChannelID:      m.ChannelID,
			MessageID:      mustParseSnowflake(m.ID),
			OwnerID:        ownerID,
			SenderID:       ownerID,
			SenderNickname: nicknameOf(m.Author),
			Mentions:       convertMentions(m.Mentions),
			Raw:            m.Content,
		})
		if !ok {
			return
		}
		if err != nil {
			log.Log.Errorf("command %q failed: %v", m.Content, err)
			if reply == "" {
				reply = fmt.Sprintf("Error: %v", err)
			}
		}
		if reply != "" {
			if _, sendErr := s.ChannelMessageSend(m.ChannelID, reply); sendErr != nil {
				log.Log.Errorf("post command reply: %v", sendErr)
			}
		}
	}
}

func nicknameOf(u *discordgo.User) string {
	if u == nil {
		return "Unknown user"
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func convertMentions(users []*discordgo.User) []model.Mention {
	out := make([]model.Mention, 0, len(users))
	for _, u := range users {
		id, err := parseSnowflake(u.ID)
		if err != nil {
			continue
		}
		out = append(out, model.Mention{ID: id, Name: nicknameOf(u)})
	}
	return out
}

func parseSnowflake(id string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(id, "%d", &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func mustParseSnowflake(id string) int64 {
	n, err := parseSnowflake(id)
	if err != nil {
		return 0
	}
	return n
}
