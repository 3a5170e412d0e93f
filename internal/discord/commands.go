package discord

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
)

// EmbedColor is the accent color used on every bot embed.
const EmbedColor = 0x9B59B6

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play a track from a link, a search query or an uploaded file",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "input",
					Description: "YouTube/Spotify link or song name",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "file",
					Description: "An .mp3 file to play",
					Required:    false,
				},
			},
		},
		{Name: "skip", Description: "Skip the current track"},
		{Name: "pause", Description: "Pause playback"},
		{Name: "resume", Description: "Resume playback"},
		{Name: "stop", Description: "Stop playback and clear the queue"},
		{Name: "queue", Description: "Show the current queue"},
		{
			Name:        "join",
			Description: "Join your voice channel",
		},
		{Name: "leave", Description: "Leave the voice channel and forget the queue"},
	}
}

// deferResponse acknowledges the interaction so slow work (resolution,
// download) can finish before the reply.
func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}
	return nil
}

func followupEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{e},
	})
	if err != nil {
		log.Println("[ERR] Failed to send followup:", err)
	}
}

func followupError(s *discordgo.Session, i *discordgo.InteractionCreate, format string, args ...interface{}) {
	followupEmbed(s, i, embed.NewEmbed().
		SetColor(EmbedColor).
		SetDescription(fmt.Sprintf("🎵 "+format, args...)).
		MessageEmbed)
}

// respondError replies immediately without deferring. Used before any slow
// work starts.
func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed.NewEmbed().
				SetColor(EmbedColor).
				SetDescription("🎵 " + msg).
				MessageEmbed},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Println("[ERR] Failed to respond:", err)
	}
}
