package distnet

import (
	"context"
	"sort"

	"github.com/eng-cc/agent-world-sub008/wire"
)

// DHT is the provider/record directory the Client consults for
// provider-aware fetches.
type DHT interface {
	PublishProvider(ctx context.Context, worldID, contentHash string, record wire.ProviderRecord) error
	// GetProviders returns every known provider of contentHash in
	// worldID, sorted by freshness (most recently seen first), with
	// duplicate NodeIDs collapsed to the record carrying the maximum
	// LastSeenMs.
	GetProviders(ctx context.Context, worldID, contentHash string) ([]wire.ProviderRecord, error)
	PutWorldHead(ctx context.Context, worldID string, head wire.WorldHeadAnnounce) error
	GetWorldHead(ctx context.Context, worldID string) (wire.WorldHeadAnnounce, bool, error)
	PutMembershipDirectory(ctx context.Context, worldID string, directory []byte) error
	GetMembershipDirectory(ctx context.Context, worldID string) ([]byte, bool, error)
}

// DedupByFreshness collapses records with the same NodeID to the one
// carrying the maximum LastSeenMs, then sorts the result by
// LastSeenMs descending. DHT implementations share this so the
// freshness contract is identical across bindings.
func DedupByFreshness(records []wire.ProviderRecord) []wire.ProviderRecord {
	byNode := make(map[string]wire.ProviderRecord, len(records))
	for _, r := range records {
		existing, ok := byNode[r.NodeID]
		if !ok || r.LastSeenMs > existing.LastSeenMs {
			byNode[r.NodeID] = r
		}
	}
	out := make([]wire.ProviderRecord, 0, len(byNode))
	for _, r := range byNode {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeenMs != out[j].LastSeenMs {
			return out[i].LastSeenMs > out[j].LastSeenMs
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out
}
