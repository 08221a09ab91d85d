package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const discordAPIBase = "https://discord.com/api"

// DiscordUser is the subset of the /users/@me response this app needs.
type DiscordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
	Email      string `json:"email"`
}

// DisplayName falls back to the username when Discord supplies no global name.
func (u *DiscordUser) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// AvatarURL builds the CDN avatar URL for the user.
func (u *DiscordUser) AvatarURL() string {
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", u.ID, u.Avatar)
}

// FetchDiscordUser loads the authenticated user's profile with an OAuth
// access token.
func FetchDiscordUser(ctx context.Context, accessToken string) (*DiscordUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discordAPIBase+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord profile request returned %d", resp.StatusCode)
	}

	var user DiscordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode discord profile: %w", err)
	}
	return &user, nil
}
