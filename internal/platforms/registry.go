package platforms

import (
	"fmt"
	"sort"

	config "github.com/postpulse/postpulse/configs"
	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/transfer"
)

// Registry maps platform identifiers to their adapters. Platform-specific
// branching lives behind Resolve; nothing outside this package switches on
// platform strings.
type Registry struct {
	clients map[string]Client
	info    map[string]transfer.PlatformInfo
}

func NewRegistry(cfg config.Config) *Registry {
	r := &Registry{
		clients: make(map[string]Client),
		info:    make(map[string]transfer.PlatformInfo),
	}
	r.Register(NewInstagramClient(cfg), transfer.PlatformInfo{
		ID:          models.PlatformInstagram,
		Name:        "Instagram",
		Description: "Share photos and stories",
	})
	r.Register(NewYoutubeClient(cfg), transfer.PlatformInfo{
		ID:          models.PlatformYoutube,
		Name:        "YouTube",
		Description: "Upload and share videos",
	})
	return r
}

// Register adds or replaces an adapter. Exposed so tests can install fakes.
func (r *Registry) Register(c Client, info transfer.PlatformInfo) {
	r.clients[info.ID] = c
	r.info[info.ID] = info
}

func (r *Registry) Resolve(platform string) (Client, error) {
	c, ok := r.clients[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return c, nil
}

// ListSupported returns display metadata for every registered platform,
// ordered by platform id. This list, not the platform enum, defines what
// the connect flow accepts.
func (r *Registry) ListSupported() []transfer.PlatformInfo {
	ids := make([]string, 0, len(r.info))
	for id := range r.info {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	list := make([]transfer.PlatformInfo, 0, len(ids))
	for _, id := range ids {
		list = append(list, r.info[id])
	}
	return list
}
