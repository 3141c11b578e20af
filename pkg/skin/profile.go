package skin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionURL is the Mojang session server that serves skin textures
const DefaultSessionURL = "https://sessionserver.mojang.com"

// Variant is the arm model of a skin
type Variant string

const (
	VariantClassic Variant = "classic"
	VariantSlim    Variant = "slim"
)

// Textures describes the skin a player wears
type Textures struct {
	Variant Variant `json:"variant"`
	SkinURL string  `json:"skin_url,omitempty"`
	// CapeURL is nil for players without a cape
	CapeURL *string `json:"cape_url,omitempty"`
}

// TextureSource reads the textures of a Minecraft profile
type TextureSource interface {
	Textures(ctx context.Context, id uuid.UUID) (t *Textures, ok bool, err error)
}

// MojangSessions is a TextureSource backed by the Mojang session server
type MojangSessions struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewMojangSessions creates a texture source using the public session server
func NewMojangSessions(httpClient *http.Client) *MojangSessions {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &MojangSessions{BaseURL: DefaultSessionURL, HTTPClient: httpClient}
}

type sessionProfile struct {
	ID         string `json:"id"`
	Properties []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"properties"`
}

type texturesPayload struct {
	Textures struct {
		Skin *struct {
			URL      string `json:"url"`
			Metadata struct {
				Model string `json:"model"`
			} `json:"metadata"`
		} `json:"SKIN"`
		Cape *struct {
			URL string `json:"url"`
		} `json:"CAPE"`
	} `json:"textures"`
}

// Textures fetches the skin variant and cape of a profile. Unknown
// profiles return ok=false.
func (s *MojangSessions) Textures(ctx context.Context, id uuid.UUID) (*Textures, bool, error) {
	target := strings.TrimRight(s.BaseURL, "/") + "/session/minecraft/profile/" +
		strings.ReplaceAll(id.String(), "-", "")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("skin: create request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, false, &UpstreamError{Service: "mojang", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode != http.StatusOK:
		return nil, false, &UpstreamError{Service: "mojang", StatusCode: resp.StatusCode}
	}

	var profile sessionProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, false, &UpstreamError{Service: "mojang", StatusCode: resp.StatusCode, Err: err}
	}

	t, err := profile.textures()
	if err != nil {
		return nil, false, &UpstreamError{Service: "mojang", StatusCode: resp.StatusCode, Err: err}
	}
	return t, true, nil
}

// textures decodes the base64 "textures" property. A profile without one
// wears the default classic skin.
func (p *sessionProfile) textures() (*Textures, error) {
	t := &Textures{Variant: VariantClassic}
	for _, prop := range p.Properties {
		if prop.Name != "textures" {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(prop.Value)
		if err != nil {
			return nil, fmt.Errorf("textures property: %w", err)
		}
		var payload texturesPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("textures property: %w", err)
		}

		if skin := payload.Textures.Skin; skin != nil {
			t.SkinURL = skin.URL
			if skin.Metadata.Model == string(VariantSlim) {
				t.Variant = VariantSlim
			}
		}
		if cape := payload.Textures.Cape; cape != nil && cape.URL != "" {
			capeURL := cape.URL
			t.CapeURL = &capeURL
		}
		break
	}
	return t, nil
}
