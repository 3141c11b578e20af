package skin

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func texturesProperty(payload string) string {
	return `{"id":"` + notchID + `","name":"Notch","properties":[{"name":"textures","value":"` +
		base64.StdEncoding.EncodeToString([]byte(payload)) + `"}]}`
}

func TestMojangSessions_Textures(t *testing.T) {
	slimID := uuid.New()
	bareID := uuid.New()
	goneID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/session/minecraft/profile/" + notchID:
			w.Write([]byte(texturesProperty(`{"textures":{"SKIN":{"url":"http://textures.minecraft.net/texture/notch"},` +
				`"CAPE":{"url":"http://textures.minecraft.net/texture/cape"}}}`)))
		case "/session/minecraft/profile/" + hex(slimID):
			w.Write([]byte(texturesProperty(`{"textures":{"SKIN":{"url":"http://textures.minecraft.net/texture/alex",` +
				`"metadata":{"model":"slim"}}}}`)))
		case "/session/minecraft/profile/" + hex(bareID):
			w.Write([]byte(`{"id":"` + hex(bareID) + `","name":"Bare","properties":[]}`))
		case "/session/minecraft/profile/" + hex(goneID):
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer server.Close()

	s := NewMojangSessions(server.Client())
	s.BaseURL = server.URL
	ctx := context.Background()

	notch, ok, err := s.Textures(ctx, uuid.MustParse(notchID))
	if err != nil || !ok {
		t.Fatalf("Expected textures, got ok=%v err=%v", ok, err)
	}
	if notch.Variant != VariantClassic {
		t.Errorf("Expected classic variant, got %s", notch.Variant)
	}
	if notch.SkinURL != "http://textures.minecraft.net/texture/notch" {
		t.Errorf("Unexpected skin url %s", notch.SkinURL)
	}
	if notch.CapeURL == nil || *notch.CapeURL != "http://textures.minecraft.net/texture/cape" {
		t.Errorf("Unexpected cape url %v", notch.CapeURL)
	}

	slim, ok, err := s.Textures(ctx, slimID)
	if err != nil || !ok {
		t.Fatalf("Expected textures, got ok=%v err=%v", ok, err)
	}
	if slim.Variant != VariantSlim || slim.CapeURL != nil {
		t.Errorf("Expected slim skin without cape, got %+v", slim)
	}

	bare, ok, err := s.Textures(ctx, bareID)
	if err != nil || !ok {
		t.Fatalf("Expected textures, got ok=%v err=%v", ok, err)
	}
	if bare.Variant != VariantClassic || bare.SkinURL != "" {
		t.Errorf("Expected default skin, got %+v", bare)
	}

	if _, ok, err := s.Textures(ctx, goneID); ok || err != nil {
		t.Errorf("Expected not found without error, got ok=%v err=%v", ok, err)
	}

	_, _, err = s.Textures(ctx, uuid.New())
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected 429 upstream error, got %v", err)
	}
}

func TestMojangSessions_BrokenProperty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"` + notchID + `","properties":[{"name":"textures","value":"%%%"}]}`))
	}))
	defer server.Close()

	s := NewMojangSessions(server.Client())
	s.BaseURL = server.URL

	_, _, err := s.Textures(context.Background(), uuid.MustParse(notchID))
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Errorf("Expected upstream error, got %v", err)
	}
}

type stubTextures map[uuid.UUID]*Textures

func (s stubTextures) Textures(_ context.Context, id uuid.UUID) (*Textures, bool, error) {
	t, ok := s[id]
	return t, ok, nil
}

func TestResolver_Textures(t *testing.T) {
	id := uuid.MustParse(notchID)
	users := stubUsers{"1": {Username: strPtr("Notch"), UUID: strPtr(notchID)}}
	r := NewResolver(users, &stubDirectory{}, nil).
		WithTextures(stubTextures{id: {Variant: VariantSlim}})

	got, ok, err := r.Textures(context.Background(), "1")
	if err != nil || !ok {
		t.Fatalf("Expected textures, got ok=%v err=%v", ok, err)
	}
	if got.Variant != VariantSlim {
		t.Errorf("Expected slim variant, got %s", got.Variant)
	}

	if _, ok, err := r.Textures(context.Background(), "404"); ok || err != nil {
		t.Errorf("Expected absent result, got ok=%v err=%v", ok, err)
	}
}

func hex(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
