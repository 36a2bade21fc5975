package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidSiteURL = errors.New("invalid site url")

// Links are the share URLs handed out after a room is created. Each team
// link carries that team's secret key.
type Links struct {
	Blue      string `json:"blue"`
	Red       string `json:"red"`
	Spectator string `json:"spectator"`
}

// For returns the link for role "blue", "red" or "spectator".
func (l Links) For(role string) (string, bool) {
	switch role {
	case "blue":
		return l.Blue, true
	case "red":
		return l.Red, true
	case "spectator":
		return l.Spectator, true
	default:
		return "", false
	}
}

func BuildLinks(siteURL string, rc RoomCreated) (Links, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return Links{}, fmt.Errorf("%w: %w", ErrInvalidSiteURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Links{}, fmt.Errorf("%w: %q", ErrInvalidSiteURL, siteURL)
	}
	if rc.RoomID == "" {
		return Links{}, errors.New("room id is empty")
	}

	base := strings.TrimRight(siteURL, "/") + "/draft?game_id=" + url.QueryEscape(rc.RoomID)
	suffix := ""
	if rc.Fearless {
		suffix = "&fearless=true"
	}
	team := func(key, side string) string {
		return base + "&key=" + url.QueryEscape(key) + "&team=" + side + suffix
	}
	return Links{
		Blue:      team(rc.BlueKey, "blue"),
		Red:       team(rc.RedKey, "red"),
		Spectator: base + suffix,
	}, nil
}
