package discord

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"groovebox/internal/config"
	"groovebox/internal/music/player"
	"groovebox/internal/music/source_resolver"
)

// Bot is the Discord front end: it owns the gateway session and routes
// slash commands into per-guild playback sessions.
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	registry *player.Registry
	pipeline *source_resolver.Pipeline
	ctx      context.Context
	handlers map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error
}

// NewBot wires the gateway session to the registry and the resolution
// pipeline. The session must not be opened yet; Run opens it.
func NewBot(dg *discordgo.Session, cfg *config.Config, registry *player.Registry, pipeline *source_resolver.Pipeline) *Bot {
	b := &Bot{
		dg:       dg,
		cfg:      cfg,
		registry: registry,
		pipeline: pipeline,
	}
	b.handlers = map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error{
		"play":   b.handlePlay,
		"skip":   b.handleSkip,
		"pause":  b.handlePause,
		"resume": b.handleResume,
		"stop":   b.handleStop,
		"queue":  b.handleQueue,
		"join":   b.handleJoin,
		"leave":  b.handleLeave,
	}
	return b
}

// Run connects to the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onGuildDelete)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Println("[INFO] Shutdown signal received. Cleaning up...")
	b.registry.Shutdown()
	return nil
}

// onReady registers the slash commands once the gateway handshake is done.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	appID := s.State.User.ID
	if _, err := s.ApplicationCommandBulkOverwrite(appID, "", commandDefinitions()); err != nil {
		log.Println("[ERR] Failed to register slash commands:", err)
		return
	}
	log.Printf("[INFO] ✅ Discord bot %v is running.", r.User.Username)
}

// onGuildDelete tears down the guild's playback session when the bot is
// kicked or the guild goes away.
func (b *Bot) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	log.Printf("[INFO] Removed from guild %s, dropping its session", g.ID)
	b.registry.Remove(g.ID)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	handler, ok := b.handlers[name]
	if !ok {
		log.Printf("[WARN] Unknown command: %s", name)
		return
	}
	if i.GuildID == "" {
		respondError(s, i, "This command only works in a server.")
		return
	}
	if err := handler(s, i); err != nil {
		log.Printf("[ERR] Command /%s failed: %v", name, err)
	}
}

// findUserVoiceState locates the voice channel the invoking user sits in.
func (b *Bot) findUserVoiceState(guildID, userID string) (*discordgo.VoiceState, error) {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving guild: %w", err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs, nil
		}
	}
	return nil, fmt.Errorf("you must be in a voice channel")
}
