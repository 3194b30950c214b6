// Package profile resolves user identities to display profiles, with a
// short-TTL cache in front of the directory.
package profile

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/neegandary/NexChat/internal/model"
	"github.com/neegandary/NexChat/internal/store"
)

// Directory is the read-only profile source consulted on cache misses.
type Directory interface {
	FetchProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// StoreDirectory serves profiles from the local persistent store.
type StoreDirectory struct {
	profiles store.Profiles
}

func NewStoreDirectory(p store.Profiles) *StoreDirectory {
	return &StoreDirectory{profiles: p}
}

func (d *StoreDirectory) FetchProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return d.profiles.Get(ctx, userID)
}

// HTTPDirectory fetches profiles from a remote directory service. Used when
// the account system lives in a separate deployment.
type HTTPDirectory struct {
	rc *resty.Client
}

func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second)
	return &HTTPDirectory{rc: rc}
}

func (d *HTTPDirectory) FetchProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var out model.Profile
	resp, err := d.rc.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/profiles/" + userID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, model.ErrNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("directory: http %d", resp.StatusCode())
	}
	return &out, nil
}
