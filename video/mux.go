package video

import (
	"context"
	"errors"
	"fmt"

	muxgo "github.com/muxinc/mux-go"
)

// Mux implements Provider on top of the Mux Video API.
type Mux struct {
	client *muxgo.APIClient
}

func NewMux(tokenID string, tokenSecret string) *Mux {
	client := muxgo.NewAPIClient(muxgo.NewConfiguration(
		muxgo.WithBasicAuth(tokenID, tokenSecret),
	))
	return &Mux{client: client}
}

func (m *Mux) CreateAsset(ctx context.Context, sourceURL string) (Asset, error) {
	req := muxgo.CreateAssetRequest{
		Input:          []muxgo.InputSettings{{Url: sourceURL}},
		PlaybackPolicy: []muxgo.PlaybackPolicy{muxgo.PUBLIC},
	}

	res, err := m.client.AssetsApi.CreateAsset(req)
	if err != nil {
		return Asset{}, fmt.Errorf("creating mux asset: %w", err)
	}

	asset := Asset{ID: res.Data.Id}
	if len(res.Data.PlaybackIds) > 0 {
		asset.PlaybackID = res.Data.PlaybackIds[0].Id
	}
	return asset, nil
}

func (m *Mux) DeleteAsset(ctx context.Context, assetID string) error {
	if err := m.client.AssetsApi.DeleteAsset(assetID); err != nil {
		var nf muxgo.NotFoundError
		if errors.As(err, &nf) {
			return ErrAssetNotFound
		}
		return fmt.Errorf("deleting mux asset[%s]: %w", assetID, err)
	}
	return nil
}
