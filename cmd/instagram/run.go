package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/prior-it/socialauth/config"
	"github.com/prior-it/socialauth/oauth"
)

var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#139DFF"))
	StyleError = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	StyleLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#525252"))
	StyleBox   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).Padding(0, 1)
)

type options struct {
	token   string
	limit   int
	after   string
	mediaID string
	fields  []string
	apiURL  string
	timeout time.Duration
}

func run(ctx context.Context, out io.Writer, opts options) error {
	storage := oauth.NewMemoryStorage()
	if err := storage.Set(ctx, oauth.ProviderInstagram+"."+oauth.KeyAccessToken, opts.token); err != nil {
		return err
	}
	instagram, err := oauth.NewInstagramAdapter(
		ctx,
		config.OauthProviderConfig{APIURL: opts.apiURL},
		"",
		storage,
		oauth.WithTimeout(opts.timeout),
	)
	if err != nil {
		return err
	}

	if len(opts.mediaID) > 0 {
		media, err := instagram.Media(ctx, opts.mediaID, opts.fields...)
		if err != nil {
			return fmt.Errorf("cannot retrieve media %q: %w", opts.mediaID, err)
		}
		fmt.Fprintln(out, StyleTitle.Render("Media "+opts.mediaID))
		fmt.Fprintln(out, StyleBox.Render(properties(oauth.NewCollection(media))))
		return nil
	}

	profile, err := instagram.UserProfile(ctx)
	if err != nil {
		return fmt.Errorf("cannot retrieve profile: %w", err)
	}
	fmt.Fprintln(out, StyleTitle.Render(profile.DisplayName))
	fmt.Fprintln(out, StyleBox.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		line("id", profile.Identifier),
		line("profile", profile.ProfileURL),
		line("account type", fmt.Sprint(profile.Data["account_type"])),
		line("media count", fmt.Sprint(profile.Data["media_count"])),
	)))

	page, err := instagram.UserMedia(ctx, opts.limit, opts.after, opts.fields...)
	if err != nil {
		return fmt.Errorf("cannot retrieve media: %w", err)
	}
	fmt.Fprintln(out, StyleTitle.Render("Media"))
	for _, item := range page.Filter("data").Raw().Array() {
		fmt.Fprintln(out, StyleBox.Render(properties(oauth.NewCollection(item))))
	}
	if next := page.Path("paging.cursors.after").String(); len(next) > 0 {
		fmt.Fprintln(out, line("next page", "-after "+next))
	}
	return nil
}

func properties(item *oauth.Collection) string {
	var lines []string
	for _, key := range item.Properties() {
		lines = append(lines, line(key, item.Get(key).String()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func line(label string, value string) string {
	return StyleLabel.Render(label+":") + " " + value
}
