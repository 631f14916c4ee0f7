package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/sources/providers"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

// maxUserInfoSize caps the profile response body.
const maxUserInfoSize = 1 << 20

// fetchUser loads the profile of the token owner and maps it with the
// provider's claim names.
func fetchUser(ctx context.Context, cfg *oauth2.Config, p providers.Provider, tok *oauth2.Token) (domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer utils.Close(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoSize))
	if err != nil {
		return domain.User{}, fmt.Errorf("read userinfo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.User{}, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, string(body))
	}

	claims, err := decodeClaims(body)
	if err != nil {
		return domain.User{}, fmt.Errorf("decode userinfo: %w", err)
	}

	user := domain.User{
		ID:    claim(claims, p.Claims.ID),
		Email: claim(claims, p.Claims.Email),
		Name:  claim(claims, p.Claims.Name),
	}
	if user.ID == "" {
		return domain.User{}, fmt.Errorf("userinfo has no %q claim", p.Claims.ID)
	}
	return user, nil
}

// decodeClaims keeps numbers as json.Number so large numeric ids survive.
func decodeClaims(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var claims map[string]any
	if err := dec.Decode(&claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// claim renders a claim as a string. Numbers keep their literal digits.
func claim(claims map[string]any, name string) string {
	switch v := claims[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
