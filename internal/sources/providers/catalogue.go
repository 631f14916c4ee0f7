// Package providers holds the catalogue of OAuth identity providers users
// can sign in with.
package providers

import (
	"fmt"
	"sort"
	"strings"
)

// Google is the built-in provider name.
const Google = "google"

// Catalogue maps provider names to their endpoints.
type Catalogue map[string]Provider

// Builtin returns the providers available without a catalogue file.
func Builtin() Catalogue {
	return Catalogue{
		Google: {
			Label:       "Google",
			AuthURL:     "https://accounts.google.com/o/oauth2/auth",
			TokenURL:    "https://oauth2.googleapis.com/token",
			UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
			Scopes:      []string{"openid", "email", "profile"},
			Claims:      Claims{}.withDefaults(),
		},
	}
}

// Get returns the named provider.
func (c Catalogue) Get(name string) (Provider, bool) {
	p, ok := c[strings.ToLower(name)]
	return p, ok
}

// Names returns the provider names, sorted.
func (c Catalogue) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithCredentials fills blank client credentials with the given defaults.
func (c Catalogue) WithCredentials(clientID, clientSecret string) Catalogue {
	out := make(Catalogue, len(c))
	for name, p := range c {
		if p.ClientID == "" {
			p.ClientID = clientID
		}
		if p.ClientSecret == "" {
			p.ClientSecret = clientSecret
		}
		out[name] = p
	}
	return out
}

// merge overlays other on c; entries of other win.
func (c Catalogue) merge(other Catalogue) Catalogue {
	out := make(Catalogue, len(c)+len(other))
	for name, p := range c {
		out[name] = p
	}
	for name, p := range other {
		out[name] = p
	}
	return out
}

func (p Provider) validate(name string) error {
	switch {
	case p.AuthURL == "":
		return fmt.Errorf("provider %q: auth_url is required", name)
	case p.TokenURL == "":
		return fmt.Errorf("provider %q: token_url is required", name)
	case p.UserInfoURL == "":
		return fmt.Errorf("provider %q: userinfo_url is required", name)
	}
	return nil
}
