package services

import (
	"errors"

	"fractal-dashboard/config"
	"fractal-dashboard/models"
	"fractal-dashboard/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// discordEndpoint is Discord's OAuth2 authorization-code endpoint pair.
var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/api/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

type AuthService struct {
	DB       *gorm.DB
	Sessions *session.Store
	OAuth    *oauth2.Config
}

func NewAuthService(db *gorm.DB, store *session.Store, cfg *config.Config) *AuthService {
	return &AuthService{
		DB:       db,
		Sessions: store,
		OAuth: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.RedirectURL(),
			Scopes:       []string{"identify", "email", "guilds"},
			Endpoint:     discordEndpoint,
		},
	}
}

// Login redirects the browser to Discord's consent screen with a fresh
// state nonce bound to the session.
func (s *AuthService) Login(c *fiber.Ctx) error {
	sess, err := s.Sessions.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	state := uuid.NewString()
	sess.Set("oauth_state", state)
	if err := sess.Save(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.Redirect(s.OAuth.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

// Callback completes the OAuth flow: verifies state, exchanges the code,
// fetches the Discord profile and upserts the user row. Any persistence
// error rejects the sign-in; no session is issued on failure.
func (s *AuthService) Callback(c *fiber.Ctx) error {
	sess, err := s.Sessions.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	expectedState, _ := sess.Get("oauth_state").(string)
	if expectedState == "" || c.Query("state") != expectedState {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid OAuth state"})
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing authorization code"})
	}

	token, err := s.OAuth.Exchange(c.Context(), code)
	if err != nil {
		logrus.Errorf("OAuth code exchange failed: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Sign-in failed"})
	}

	profile, err := utils.FetchDiscordUser(c.Context(), token.AccessToken)
	if err != nil {
		logrus.Errorf("Failed to fetch Discord profile: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Sign-in failed"})
	}

	if _, err := s.UpsertDiscordUser(profile); err != nil {
		logrus.Errorf("Error handling user sign in: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Sign-in failed"})
	}

	sess.Delete("oauth_state")
	sess.Set("discord_id", profile.ID)
	if err := sess.Save(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.Redirect("/", fiber.StatusFound)
}

// UpsertDiscordUser creates the user on first sign-in and refreshes
// username, display name and avatar on every later one.
func (s *AuthService) UpsertDiscordUser(profile *utils.DiscordUser) (*models.User, error) {
	var user models.User
	err := s.DB.Where("discord_id = ?", profile.ID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			DiscordID:   profile.ID,
			Username:    profile.Username,
			DisplayName: profile.DisplayName(),
			AvatarURL:   profile.AvatarURL(),
		}
		if err := s.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	user.Username = profile.Username
	user.DisplayName = profile.DisplayName()
	user.AvatarURL = profile.AvatarURL()
	if err := s.DB.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Session returns the signed-in user's persisted profile and counters.
// Attaching is best-effort: a missing row degrades to the bare Discord id
// rather than failing the session.
func (s *AuthService) Session(c *fiber.Ctx) error {
	discordID := c.Locals("discord_id").(string)

	var user models.User
	if err := s.DB.Where("discord_id = ?", discordID).First(&user).Error; err != nil {
		logrus.Warnf("Session user lookup failed for %s: %v", discordID, err)
		return c.JSON(fiber.Map{"discordId": discordID})
	}

	return c.JSON(fiber.Map{
		"id":            user.ID,
		"discordId":     user.DiscordID,
		"username":      user.Username,
		"displayName":   user.DisplayName,
		"avatarUrl":     user.AvatarURL,
		"walletAddress": user.WalletAddress,
		"totalFractals": user.TotalFractals,
		"totalWins":     user.TotalWins,
		"totalVotes":    user.TotalVotes,
	})
}

// Logout destroys the session.
func (s *AuthService) Logout(c *fiber.Ctx) error {
	sess, err := s.Sessions.Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
		}
	}
	return c.JSON(fiber.Map{"success": true})
}

type updateWalletRequest struct {
	WalletAddress string `json:"walletAddress"`
	WalletType    string `json:"walletType"`
}

// UpdateWallet links a wallet address to the signed-in user. Addresses are
// unique across users; claiming one that is already linked returns 409.
func (s *AuthService) UpdateWallet(c *fiber.Ctx) error {
	discordID := c.Locals("discord_id").(string)

	var req updateWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "walletAddress is required"})
	}

	var user models.User
	if err := s.DB.Where("discord_id = ?", discordID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	user.WalletAddress = &req.WalletAddress
	user.WalletType = req.WalletType
	if err := s.DB.Save(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Wallet address already linked"})
		}
		logrus.Errorf("Failed to update wallet for %s: %v", discordID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(user)
}
