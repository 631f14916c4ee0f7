package providers

// File is the top-level structure of providers.yaml
type File struct {
	Providers map[string]Provider `yaml:"providers"`
}

// Provider describes one OAuth2 identity provider
type Provider struct {
	Label        string   `yaml:"label,omitempty"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
	Claims       Claims   `yaml:"claims,omitempty"`
}

// Claims maps userinfo response fields onto the session user
type Claims struct {
	ID    string `yaml:"id,omitempty"`
	Email string `yaml:"email,omitempty"`
	Name  string `yaml:"name,omitempty"`
}

// withDefaults fills the claim names used by OpenID Connect
func (c Claims) withDefaults() Claims {
	if c.ID == "" {
		c.ID = "sub"
	}
	if c.Email == "" {
		c.Email = "email"
	}
	if c.Name == "" {
		c.Name = "name"
	}
	return c
}
