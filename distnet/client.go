package distnet

import (
	"context"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
)

// Client is the typed CBOR request/response facade over a Network.
type Client struct {
	network Network
}

func NewClient(network Network) *Client {
	return &Client{network: network}
}

func (c *Client) GetWorldHead(ctx context.Context, worldID string) (wire.WorldHeadAnnounce, error) {
	var resp wire.GetWorldHeadResponse
	if err := c.request(ctx, wire.RRGetWorldHead, wire.GetWorldHeadRequest{WorldID: worldID}, &resp); err != nil {
		return wire.WorldHeadAnnounce{}, err
	}
	return resp.Head, nil
}

func (c *Client) GetBlock(ctx context.Context, worldID string, height uint64) (wire.WorldBlock, error) {
	var resp wire.GetBlockResponse
	if err := c.request(ctx, wire.RRGetBlock, wire.GetBlockRequest{WorldID: worldID, Height: height}, &resp); err != nil {
		return wire.WorldBlock{}, err
	}
	return resp.Block, nil
}

func (c *Client) GetSnapshotManifest(ctx context.Context, worldID string, epoch uint64) (wire.SnapshotManifest, error) {
	var resp wire.GetSnapshotManifestResponse
	if err := c.request(ctx, wire.RRGetSnapshotManifest, wire.GetSnapshotManifestRequest{WorldID: worldID, Epoch: epoch}, &resp); err != nil {
		return wire.SnapshotManifest{}, err
	}
	return resp.Manifest, nil
}

func (c *Client) FetchBlob(ctx context.Context, contentHash string) ([]byte, error) {
	var resp wire.FetchBlobResponse
	if err := c.request(ctx, wire.RRFetchBlob, wire.FetchBlobRequest{ContentHash: contentHash}, &resp); err != nil {
		return nil, err
	}
	return resp.Bytes, nil
}

func (c *Client) FetchBlobWithProviders(ctx context.Context, contentHash string, providers []string) ([]byte, error) {
	var resp wire.FetchBlobResponse
	if err := c.requestWithProviders(ctx, wire.RRFetchBlob, wire.FetchBlobRequest{ContentHash: contentHash}, providers, &resp); err != nil {
		return nil, err
	}
	return resp.Bytes, nil
}

// FetchBlobFromDHT looks up contentHash's providers in dht; if any
// exist it issues a provider-targeted request, falling back to the
// unrestricted request on failure or when no providers are known.
// Returned bytes are the caller's responsibility to verify against
// contentHash (see cas.Store.PutVerified).
func (c *Client) FetchBlobFromDHT(ctx context.Context, worldID, contentHash string, dht DHT) ([]byte, error) {
	records, err := dht.GetProviders(ctx, worldID, contentHash)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return c.FetchBlob(ctx, contentHash)
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.NodeID
	}
	if bytes, err := c.FetchBlobWithProviders(ctx, contentHash, ids); err == nil {
		return bytes, nil
	}
	return c.FetchBlob(ctx, contentHash)
}

func (c *Client) GetJournalSegment(ctx context.Context, worldID string, fromEventID uint64) (wire.BlobRef, error) {
	var resp wire.GetJournalSegmentResponse
	if err := c.request(ctx, wire.RRGetJournalSegment, wire.GetJournalSegmentRequest{WorldID: worldID, FromEventID: fromEventID}, &resp); err != nil {
		return wire.BlobRef{}, err
	}
	return resp.Segment, nil
}

func (c *Client) GetReceiptSegment(ctx context.Context, worldID string, fromEventID uint64) (wire.BlobRef, error) {
	var resp wire.GetReceiptSegmentResponse
	if err := c.request(ctx, wire.RRGetReceiptSegment, wire.GetReceiptSegmentRequest{WorldID: worldID, FromEventID: fromEventID}, &resp); err != nil {
		return wire.BlobRef{}, err
	}
	return resp.Segment, nil
}

func (c *Client) GetModuleManifest(ctx context.Context, moduleID, manifestHash string) (wire.BlobRef, error) {
	var resp wire.GetModuleManifestResponse
	if err := c.request(ctx, wire.RRGetModuleManifest, wire.GetModuleManifestRequest{ModuleID: moduleID, ManifestHash: manifestHash}, &resp); err != nil {
		return wire.BlobRef{}, err
	}
	return resp.ManifestRef, nil
}

func (c *Client) GetModuleArtifact(ctx context.Context, wasmHash string) (wire.BlobRef, error) {
	var resp wire.GetModuleArtifactResponse
	if err := c.request(ctx, wire.RRGetModuleArtifact, wire.GetModuleArtifactRequest{WasmHash: wasmHash}, &resp); err != nil {
		return wire.BlobRef{}, err
	}
	return resp.ArtifactRef, nil
}

// FetchModuleManifestFromDHT chains a manifest-metadata lookup with a
// provider-aware blob fetch, returning the raw manifest bytes; the
// caller decodes them into its own module-manifest type.
func (c *Client) FetchModuleManifestFromDHT(ctx context.Context, worldID, moduleID, manifestHash string, dht DHT) ([]byte, error) {
	ref, err := c.GetModuleManifest(ctx, moduleID, manifestHash)
	if err != nil {
		return nil, err
	}
	return c.FetchBlobFromDHT(ctx, worldID, ref.ContentHash, dht)
}

// FetchModuleArtifactFromDHT chains an artifact-metadata lookup with a
// provider-aware blob fetch.
func (c *Client) FetchModuleArtifactFromDHT(ctx context.Context, worldID, wasmHash string, dht DHT) ([]byte, error) {
	ref, err := c.GetModuleArtifact(ctx, wasmHash)
	if err != nil {
		return nil, err
	}
	return c.FetchBlobFromDHT(ctx, worldID, ref.ContentHash, dht)
}

func (c *Client) request(ctx context.Context, protocol string, req, resp any) error {
	payload, err := wire.Marshal(req)
	if err != nil {
		return werr.Wrap(werr.KindValidation, err, "encode %s request", protocol)
	}
	respBytes, err := c.network.Request(ctx, protocol, payload)
	if err != nil {
		return err
	}
	return decodeResponse(respBytes, resp)
}

func (c *Client) requestWithProviders(ctx context.Context, protocol string, req any, providers []string, resp any) error {
	payload, err := wire.Marshal(req)
	if err != nil {
		return werr.Wrap(werr.KindValidation, err, "encode %s request", protocol)
	}
	respBytes, err := c.network.RequestWithProviders(ctx, protocol, payload, providers)
	if err != nil {
		return err
	}
	return decodeResponse(respBytes, resp)
}

// decodeResponse tries decoding bytes as a wire.ErrorResponse first;
// if that succeeds and carries a non-empty code, it is mapped to a
// werr.WorldError before any attempt to decode the expected type.
func decodeResponse(data []byte, out any) error {
	var errResp wire.ErrorResponse
	if err := wire.Unmarshal(data, &errResp); err == nil && errResp.Code != "" {
		kind := werr.KindValidation
		if errResp.Retryable {
			kind = werr.KindRetryable
		}
		return werr.New(kind, "NetworkRequestFailed: %s: %s", errResp.Code, errResp.Message)
	}
	if err := wire.Unmarshal(data, out); err != nil {
		return werr.Wrap(werr.KindValidation, err, "decode response")
	}
	return nil
}
