// Package skin renders Minecraft skins of SPWorlds players through the
// public visage.surgeplay.com service
package skin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRenderURL    = "https://visage.surgeplay.com"
	DefaultDirectoryURL = "https://api.mojang.com"
	DefaultSize         = 64
)

var ErrUnknownPart = errors.New("skin: unknown body part")

// Part is a render mode of the visage service
type Part string

const (
	PartFace      Part = "face"
	PartFront     Part = "front"
	PartFrontFull Part = "frontfull"
	PartHead      Part = "head"
	PartBust      Part = "bust"
	PartFull      Part = "full"
	PartSkin      Part = "skin"
)

// Parts lists every supported part
var Parts = []Part{PartFace, PartFront, PartFrontFull, PartHead, PartBust, PartFull, PartSkin}

// ParsePart converts a part name, rejecting unknown ones
func ParsePart(s string) (Part, error) {
	for _, p := range Parts {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPart, s)
}

// UpstreamError is a non-success answer from an external service
type UpstreamError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("skin: %s: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("skin: %s: HTTP %d", e.Service, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NameDirectory resolves player names to profile ids
type NameDirectory interface {
	ResolveID(ctx context.Context, name string) (id uuid.UUID, ok bool, err error)
}

// MojangDirectory is a NameDirectory backed by the Mojang profile API
type MojangDirectory struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewMojangDirectory creates a directory using the public Mojang API
func NewMojangDirectory(httpClient *http.Client) *MojangDirectory {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &MojangDirectory{BaseURL: DefaultDirectoryURL, HTTPClient: httpClient}
}

// ResolveID looks up the profile id of a player name. Unknown names
// return ok=false.
func (d *MojangDirectory) ResolveID(ctx context.Context, name string) (uuid.UUID, bool, error) {
	target := strings.TrimRight(d.BaseURL, "/") + "/users/profiles/minecraft/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("skin: create request: %w", err)
	}

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return uuid.Nil, false, &UpstreamError{Service: "mojang", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		return uuid.Nil, false, nil
	case resp.StatusCode != http.StatusOK:
		return uuid.Nil, false, &UpstreamError{Service: "mojang", StatusCode: resp.StatusCode}
	}

	var profile struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return uuid.Nil, false, &UpstreamError{Service: "mojang", StatusCode: resp.StatusCode, Err: err}
	}

	// Mojang returns ids without dashes; uuid.Parse accepts both forms
	id, err := uuid.Parse(profile.ID)
	if err != nil {
		return uuid.Nil, false, &UpstreamError{Service: "mojang", StatusCode: resp.StatusCode, Err: err}
	}
	return id, true, nil
}

// Renderer builds and fetches visage render urls
type Renderer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewRenderer creates a renderer for the public visage service
func NewRenderer(httpClient *http.Client) *Renderer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Renderer{BaseURL: DefaultRenderURL, HTTPClient: httpClient}
}

// URL returns the image url of a part. A non-positive size uses DefaultSize.
func (r *Renderer) URL(part Part, id uuid.UUID, size int) string {
	if size <= 0 {
		size = DefaultSize
	}
	return fmt.Sprintf("%s/%s/%d/%s", strings.TrimRight(r.BaseURL, "/"), part, size, id.String())
}

// Image downloads the rendered part
func (r *Renderer) Image(ctx context.Context, part Part, id uuid.UUID, size int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL(part, id, size), nil)
	if err != nil {
		return nil, fmt.Errorf("skin: create request: %w", err)
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Service: "visage", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "visage", StatusCode: resp.StatusCode}
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Service: "visage", StatusCode: resp.StatusCode, Err: err}
	}
	return image, nil
}
