package skin

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alexbotov/spw/pkg/spworlds"
)

// UserLookup finds the SPWorlds player linked to a Discord account.
// *spworlds.Client satisfies it.
type UserLookup interface {
	LookupUser(ctx context.Context, discordID string) (*spworlds.User, error)
}

// Resolver turns Discord ids into skin renders
type Resolver struct {
	users     UserLookup
	directory NameDirectory
	renderer  *Renderer
	textures  TextureSource
}

// NewResolver creates a resolver. A nil directory or renderer uses the
// public services. Textures come from the Mojang session server unless
// WithTextures replaces it.
func NewResolver(users UserLookup, directory NameDirectory, renderer *Renderer) *Resolver {
	if directory == nil {
		directory = NewMojangDirectory(nil)
	}
	if renderer == nil {
		renderer = NewRenderer(nil)
	}
	return &Resolver{users: users, directory: directory, renderer: renderer, textures: NewMojangSessions(nil)}
}

// WithTextures sets the source of skin variants and capes
func (r *Resolver) WithTextures(source TextureSource) *Resolver {
	r.textures = source
	return r
}

// ProfileID returns the Minecraft profile id of the player linked to a
// Discord account. The id reported by SPWorlds is preferred; the name
// directory is asked only when it is missing or unparsable.
func (r *Resolver) ProfileID(ctx context.Context, discordID string) (uuid.UUID, bool, error) {
	user, err := r.users.LookupUser(ctx, discordID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("skin: lookup user: %w", err)
	}
	if !user.Found() {
		return uuid.Nil, false, nil
	}

	if user.UUID != nil {
		if id, err := uuid.Parse(*user.UUID); err == nil {
			return id, true, nil
		}
	}

	return r.directory.ResolveID(ctx, *user.Username)
}

// URL returns the render url for a Discord account
func (r *Resolver) URL(ctx context.Context, discordID string, part Part, size int) (string, bool, error) {
	id, ok, err := r.ProfileID(ctx, discordID)
	if err != nil || !ok {
		return "", ok, err
	}
	return r.renderer.URL(part, id, size), true, nil
}

// Image downloads the render for a Discord account
func (r *Resolver) Image(ctx context.Context, discordID string, part Part, size int) ([]byte, bool, error) {
	id, ok, err := r.ProfileID(ctx, discordID)
	if err != nil || !ok {
		return nil, ok, err
	}

	image, err := r.renderer.Image(ctx, part, id, size)
	if err != nil {
		return nil, false, err
	}
	return image, true, nil
}

// Textures returns the skin variant and cape of the player linked to a
// Discord account
func (r *Resolver) Textures(ctx context.Context, discordID string) (*Textures, bool, error) {
	id, ok, err := r.ProfileID(ctx, discordID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return r.textures.Textures(ctx, id)
}
