package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	"groovebox/internal/config"
	"groovebox/internal/discord"
	"groovebox/internal/music/player"
	"groovebox/internal/music/source_resolver"
	"groovebox/internal/music/sources/spotify"
	"groovebox/internal/music/sources/youtube"
	"groovebox/internal/music/stream"
	"groovebox/internal/music/voice"
	"groovebox/internal/status"
)

func main() {
	log.Println("[INFO] Starting groovebox...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal("[ERR] Failed to create Discord session: ", err)
	}

	catalog := youtube.New()
	meta := spotify.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	if !meta.Enabled() {
		log.Println("[INFO] Spotify credentials not set, Spotify links disabled")
	}
	pipeline := source_resolver.New(catalog, meta)

	registry := player.NewRegistry(voice.NewDialer(dg), stream.NewOpener(), cfg.IdleTimeout)
	bot := discord.NewBot(dg, cfg, registry, pipeline)

	go status.RunServer(ctx, cfg.StatusAddr, registry)

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	}

	<-errCh
	log.Println("[INFO] Bot exited cleanly")
}
