package wire

import "fmt"

// Gossipsub topic and DHT key naming.
const (
	GossipsubPrefix = "aw"

	TopicActionSuffix             = "action"
	TopicBlockSuffix              = "block"
	TopicHeadSuffix               = "head"
	TopicEventSuffix              = "event"
	TopicMembershipSuffix         = "membership"
	TopicMembershipRevocationSuffix = "membership_revocation"
	TopicMembershipReconcileSuffix  = "membership_reconcile"

	RRProtocolPrefix      = "/aw/rr/1.0.0"
	RRGetWorldHead        = RRProtocolPrefix + "/get_world_head"
	RRGetBlock            = RRProtocolPrefix + "/get_block"
	RRGetSnapshotChunk    = RRProtocolPrefix + "/get_snapshot_chunk"
	RRFetchBlob           = RRProtocolPrefix + "/fetch_blob"
	RRGetSnapshotManifest = RRProtocolPrefix + "/get_snapshot_manifest"
	RRGetJournalSegment   = RRProtocolPrefix + "/get_journal_segment"
	RRGetReceiptSegment   = RRProtocolPrefix + "/get_receipt_segment"
	RRGetModuleManifest   = RRProtocolPrefix + "/get_module_manifest"
	RRGetModuleArtifact   = RRProtocolPrefix + "/get_module_artifact"

	DHTWorldPrefix = "/aw/world"
)

func gossipsubTopic(worldID, suffix string) string {
	return fmt.Sprintf("%s.%s.%s", GossipsubPrefix, worldID, suffix)
}

func TopicAction(worldID string) string     { return gossipsubTopic(worldID, TopicActionSuffix) }
func TopicBlock(worldID string) string      { return gossipsubTopic(worldID, TopicBlockSuffix) }
func TopicHead(worldID string) string       { return gossipsubTopic(worldID, TopicHeadSuffix) }
func TopicEvent(worldID string) string      { return gossipsubTopic(worldID, TopicEventSuffix) }
func TopicMembership(worldID string) string { return gossipsubTopic(worldID, TopicMembershipSuffix) }
func TopicMembershipRevocation(worldID string) string {
	return gossipsubTopic(worldID, TopicMembershipRevocationSuffix)
}
func TopicMembershipReconcile(worldID string) string {
	return gossipsubTopic(worldID, TopicMembershipReconcileSuffix)
}

// DHTWorldHeadKey returns the DHT record key for a world's latest head.
func DHTWorldHeadKey(worldID string) string {
	return fmt.Sprintf("%s/%s/head", DHTWorldPrefix, worldID)
}

// DHTProviderKey returns the DHT record key for a content hash's
// provider list.
func DHTProviderKey(contentHash string) string {
	return fmt.Sprintf("%s/providers/%s", DHTWorldPrefix, contentHash)
}

// DHTMembershipKey returns the DHT record key for a world's membership
// directory snapshot.
func DHTMembershipKey(worldID string) string {
	return fmt.Sprintf("%s/%s/membership", DHTWorldPrefix, worldID)
}
