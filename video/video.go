// Package video abstracts the video-hosting provider. Chapters reference a
// provider asset; the asset must exist before a chapter can be published and
// must be released when the chapter goes away.
package video

import (
	"context"
	"errors"
)

type Asset struct {
	ID         string
	PlaybackID string
}

// ErrAssetNotFound reports that the provider no longer knows the asset.
// Deletes treat it as already-released.
var ErrAssetNotFound = errors.New("video asset not found")

type Provider interface {
	CreateAsset(ctx context.Context, sourceURL string) (Asset, error)
	DeleteAsset(ctx context.Context, assetID string) error
}
