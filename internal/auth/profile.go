package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aqeluk/THYNKAPI/internal/core"
)

// ProfileAdapter normalizes one provider's userinfo response.
// An empty Email is allowed here; the provider may resolve it afterwards.
type ProfileAdapter interface {
	Normalize(body []byte) (*core.ExternalProfile, error)
}

// EmailResolver is implemented by adapters that can look up an email address
// the userinfo response did not include.
type EmailResolver interface {
	ResolveEmail(ctx context.Context, client *http.Client, userInfoURL string) (string, error)
}

// GitHubProfile handles the flat /user object.
type GitHubProfile struct{}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (GitHubProfile) Normalize(body []byte) (*core.ExternalProfile, error) {
	var user githubUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	name := user.Name
	if name == "" {
		name = user.Login
	}
	return &core.ExternalProfile{Email: user.Email, DisplayName: name}, nil
}

// ResolveEmail reads <userinfo>/emails for users whose email is private.
func (GitHubProfile) ResolveEmail(
	ctx context.Context,
	client *http.Client,
	userInfoURL string,
) (string, error) {
	body, err := getJSON(ctx, client, strings.TrimSuffix(userInfoURL, "/")+"/emails")
	if err != nil {
		return "", err
	}

	var emails []githubEmail
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", fmt.Errorf("failed to decode emails: %w", err)
	}

	for _, email := range emails {
		if email.Primary && email.Verified {
			return email.Email, nil
		}
	}
	for _, email := range emails {
		if email.Verified {
			return email.Email, nil
		}
	}
	return "", errors.New("no verified email found")
}

// GoogleProfile handles the flat OpenID Connect userinfo object.
type GoogleProfile struct{}

type googleUser struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (GoogleProfile) Normalize(body []byte) (*core.ExternalProfile, error) {
	var user googleUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &core.ExternalProfile{Email: user.Email, DisplayName: user.Name}, nil
}

// MicrosoftProfile handles Graph user objects, either flat (/me) or wrapped
// in a {"value": [...]} collection.
type MicrosoftProfile struct{}

type microsoftUser struct {
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	// OpenID userinfo fields
	Email string `json:"email"`
	Name  string `json:"name"`
}

type microsoftCollection struct {
	Value []microsoftUser `json:"value"`
}

func (MicrosoftProfile) Normalize(body []byte) (*core.ExternalProfile, error) {
	var wrapped microsoftCollection
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Value != nil {
		if len(wrapped.Value) == 0 {
			return nil, errors.New("empty user collection")
		}
		return wrapped.Value[0].profile(), nil
	}

	var user microsoftUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return user.profile(), nil
}

func (u microsoftUser) profile() *core.ExternalProfile {
	email := firstNonEmpty(u.Mail, u.Email, u.UserPrincipalName)
	return &core.ExternalProfile{
		Email:       email,
		DisplayName: firstNonEmpty(u.DisplayName, u.Name),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
