package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"

	"groovebox/internal/music/player"
	"groovebox/internal/music/source_resolver"
	"groovebox/internal/music/sources"
)

// resolveTimeout bounds how long a single /play may spend resolving input
// (search, playlist expansion, Spotify paging).
const resolveTimeout = 2 * time.Minute

func (b *Bot) handlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferResponse(s, i); err != nil {
		return err
	}

	data := i.ApplicationCommandData()
	var input string
	var attachment *discordgo.MessageAttachment
	for _, opt := range data.Options {
		switch opt.Name {
		case "input":
			input = strings.TrimSpace(opt.StringValue())
		case "file":
			if id, ok := opt.Value.(string); ok && data.Resolved != nil {
				attachment = data.Resolved.Attachments[id]
			}
		}
	}
	if input == "" && attachment == nil {
		followupError(s, i, "Give me a link, a search query or an .mp3 file.")
		return nil
	}

	voiceState, err := b.findUserVoiceState(i.GuildID, i.Member.User.ID)
	if err != nil {
		followupError(s, i, "Error: %s", err.Error())
		return nil
	}

	sess := b.registry.GetOrCreate(i.GuildID)
	if err := sess.Connect(b.ctx, voiceState.ChannelID); err != nil {
		followupError(s, i, "Error: failed to join voice channel: %v", err)
		return nil
	}

	var songs []sources.Song
	if attachment != nil {
		path, err := b.downloadAttachment(attachment)
		if err != nil {
			followupError(s, i, "Error: %v", err)
			return nil
		}
		songs = []sources.Song{b.pipeline.WrapUpload(path, attachment.Filename)}
	} else {
		ctx, cancel := context.WithTimeout(b.ctx, resolveTimeout)
		defer cancel()
		songs, err = b.pipeline.Resolve(ctx, input)
		switch {
		case errors.Is(err, source_resolver.ErrNoResults):
			followupError(s, i, "No results for **%s**.", input)
			return nil
		case errors.Is(err, source_resolver.ErrSpotifyDisabled):
			followupError(s, i, "Spotify links are not enabled on this bot.")
			return nil
		case err != nil:
			followupError(s, i, "Error: failed to resolve track: %v", err)
			return nil
		}
	}

	if err := sess.Enqueue(songs...); err != nil {
		followupError(s, i, "Error: %v", err)
		return nil
	}

	if len(songs) == 1 {
		track := songs[0]
		desc := fmt.Sprintf("🎶 Queued **%s**", track.Title)
		if track.WebLocator != "" {
			desc = fmt.Sprintf("🎶 Queued [%s](%s)", track.Title, track.WebLocator)
		}
		if track.DurationSeconds > 0 {
			desc += " `" + track.DurationString() + "`"
		}
		followupEmbed(s, i, embed.NewEmbed().SetColor(EmbedColor).SetDescription(desc).MessageEmbed)
	} else {
		followupEmbed(s, i, embed.NewEmbed().
			SetColor(EmbedColor).
			SetDescription(fmt.Sprintf("🎶 Queued **%d** tracks", len(songs))).
			MessageEmbed)
	}
	return nil
}

func (b *Bot) handleSkip(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sess, ok := b.registry.Get(i.GuildID)
	if !ok {
		respondError(s, i, "Nothing is playing.")
		return nil
	}
	if err := sess.Skip(); err != nil {
		respondError(s, i, "Nothing is playing.")
		return nil
	}
	respondError(s, i, "⏭️ Skipped.")
	return nil
}

func (b *Bot) handlePause(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sess, ok := b.registry.Get(i.GuildID)
	if !ok {
		respondError(s, i, "Nothing is playing.")
		return nil
	}
	if err := sess.Pause(); err != nil {
		respondError(s, i, "Nothing to pause.")
		return nil
	}
	respondError(s, i, "⏸️ Paused.")
	return nil
}

func (b *Bot) handleResume(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sess, ok := b.registry.Get(i.GuildID)
	if !ok {
		respondError(s, i, "Nothing is paused.")
		return nil
	}
	if err := sess.Resume(); err != nil {
		respondError(s, i, "Nothing is paused.")
		return nil
	}
	respondError(s, i, "▶️ Resumed.")
	return nil
}

func (b *Bot) handleStop(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sess, ok := b.registry.Get(i.GuildID)
	if !ok {
		respondError(s, i, "Nothing is playing.")
		return nil
	}
	if err := sess.StopAndClear(); err != nil {
		respondError(s, i, "Nothing is playing.")
		return nil
	}
	respondError(s, i, "⏹️ Playback stopped. Queue cleared.")
	return nil
}

// queueDisplayLimit caps how many upcoming tracks the /queue embed lists.
const queueDisplayLimit = 10

func (b *Bot) handleQueue(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sess, ok := b.registry.Get(i.GuildID)
	if !ok {
		respondError(s, i, "The queue is empty.")
		return nil
	}

	var sb strings.Builder
	if current, playing := sess.Current(); playing {
		marker := "🎶"
		if sess.State() == player.StatePaused {
			marker = "⏸️"
		}
		fmt.Fprintf(&sb, "%s **%s** `%s`\n", marker, current.Title, current.DurationString())
	}

	upcoming := sess.Upcoming(queueDisplayLimit)
	total := sess.QueueLen()
	if sb.Len() == 0 && total == 0 {
		respondError(s, i, "The queue is empty.")
		return nil
	}

	for n, track := range upcoming {
		fmt.Fprintf(&sb, "`%d.` %s `%s`\n", n+1, track.Title, track.DurationString())
	}
	if total > len(upcoming) {
		fmt.Fprintf(&sb, "…and %d more\n", total-len(upcoming))
	}

	e := embed.NewEmbed().
		SetColor(EmbedColor).
		SetTitle("🎵 Queue").
		SetDescription(sb.String())
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{e.MessageEmbed},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to respond: %w", err)
	}
	return nil
}

func (b *Bot) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	voiceState, err := b.findUserVoiceState(i.GuildID, i.Member.User.ID)
	if err != nil {
		respondError(s, i, "Error: "+err.Error())
		return nil
	}
	sess := b.registry.GetOrCreate(i.GuildID)
	if err := sess.Connect(b.ctx, voiceState.ChannelID); err != nil {
		respondError(s, i, fmt.Sprintf("Error: failed to join voice channel: %v", err))
		return nil
	}
	respondError(s, i, "👋 Joined your voice channel.")
	return nil
}

func (b *Bot) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if _, ok := b.registry.Get(i.GuildID); !ok {
		respondError(s, i, "I am not in a voice channel.")
		return nil
	}
	b.registry.Remove(i.GuildID)
	respondError(s, i, "👋 Disconnected.")
	return nil
}
