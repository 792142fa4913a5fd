package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"main/utils"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// OAuthProfile is the provider-agnostic identity handed to the social login
// bridge after a callback resolves.
type OAuthProfile struct {
	Provider   string
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
}

// OAuthConfig builds the oauth2 config for a supported provider from the
// environment.
func OAuthConfig(provider string) (*oauth2.Config, error) {
	base := utils.GetEnvAsString("BASE_URL", "http://localhost:8080")

	switch provider {
	case "google":
		return &oauth2.Config{
			ClientID:     utils.GetEnvAsString("GOOGLE_CLIENT_ID", ""),
			ClientSecret: utils.GetEnvAsString("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  base + "/api/auth/social/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}, nil
	case "github":
		return &oauth2.Config{
			ClientID:     utils.GetEnvAsString("GITHUB_CLIENT_ID", ""),
			ClientSecret: utils.GetEnvAsString("GITHUB_CLIENT_SECRET", ""),
			RedirectURL:  base + "/api/auth/social/github/callback",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported oauth provider: %s", provider)
	}
}

// FetchOAuthProfile exchanges the callback code and fetches the provider's
// user info.
func FetchOAuthProfile(ctx context.Context, provider, code string) (*OAuthProfile, error) {
	conf, err := OAuthConfig(provider)
	if err != nil {
		return nil, err
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth code exchange failed: %w", err)
	}

	client := conf.Client(ctx, token)

	switch provider {
	case "google":
		resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch google profile: %w", err)
		}
		defer resp.Body.Close()

		var info struct {
			Sub        string `json:"sub"`
			Email      string `json:"email"`
			GivenName  string `json:"given_name"`
			FamilyName string `json:"family_name"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return nil, fmt.Errorf("failed to decode google profile: %w", err)
		}

		return &OAuthProfile{
			Provider:   provider,
			ProviderID: info.Sub,
			Email:      info.Email,
			FirstName:  info.GivenName,
			LastName:   info.FamilyName,
		}, nil

	case "github":
		resp, err := client.Get("https://api.github.com/user")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch github profile: %w", err)
		}
		defer resp.Body.Close()

		var info struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return nil, fmt.Errorf("failed to decode github profile: %w", err)
		}

		first, last := splitName(info.Name)
		return &OAuthProfile{
			Provider:   provider,
			ProviderID: fmt.Sprintf("%d", info.ID),
			Email:      info.Email,
			FirstName:  first,
			LastName:   last,
		}, nil
	}

	return nil, fmt.Errorf("unsupported oauth provider: %s", provider)
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	last = strings.Join(parts[1:], " ")
	return first, last
}
