// Package tracker is a client for the CAT protocol indexer HTTP API.
//
// Every response is an envelope {code, msg, data}; code 0 means success.
// Methods return typed errors: *IndexerError for a non-zero code and
// ErrNetwork for transport failures, both matching ErrUnavailable.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// DefaultMinterLimit is the page size used when listing minter outputs.
const DefaultMinterLimit = 100

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 32 << 20

// Client talks to one tracker base URL.
type Client struct {
	base string
	http *http.Client
}

// New creates a client with DefaultTimeout.
func New(baseURL string) *Client {
	return NewWithTimeout(baseURL, DefaultTimeout)
}

// NewWithTimeout creates a client with a custom request timeout.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient creates a client using hc for transport.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// BaseURL returns the tracker URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base }

// get fetches path, unwraps the envelope and decodes data into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	endpoint := c.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request %s: %v", ErrNetwork, path, err)
	}
	req.Header.Set("Accept", "application/json")

	// Not every transport honors a context that is already done.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrNetwork, path, ctxErr)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrNetwork, path, ctxErr)
		}
		return fmt.Errorf("%w: %s: %v", ErrNetwork, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrNetwork, path, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %s: http %d: decode envelope: %v", ErrNetwork, path, resp.StatusCode, err)
	}
	if env.Code != 0 {
		return &IndexerError{Endpoint: path, Code: env.Code, Msg: env.Msg}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %s: decode data: %v", ErrNetwork, path, err)
	}
	return nil
}

// Status returns the indexer's sync state.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.get(ctx, "/api", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Collection returns the collection with the given id, or nil when the
// indexer does not know it.
func (c *Client) Collection(ctx context.Context, id string) (*types.CollectionInfo, error) {
	var info *types.CollectionInfo
	if err := c.get(ctx, "/api/collections/"+url.PathEscape(id), &info); err != nil {
		return nil, err
	}
	if info != nil && info.CollectionAddr == "" {
		log.Tracker.Debug().Str("collection", id).Msg("Indexer returned no collection address")
	}
	return info, nil
}

// MinterUTXOs lists minter outputs of a collection.
func (c *Client) MinterUTXOs(ctx context.Context, collectionID string, limit, offset int) ([]ContractUTXO, error) {
	if limit <= 0 {
		limit = DefaultMinterLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	path := "/api/minters/" + url.PathEscape(collectionID) + "/utxos?" + q.Encode()

	var data minterUTXOsData
	if err := c.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.UTXOs, nil
}

// NFT returns the output currently holding localID, or nil if none does.
func (c *Client) NFT(ctx context.Context, collectionID string, localID uint64) (*NFTUTXO, error) {
	path := fmt.Sprintf("/api/collections/%s/localId/%d/utxo", url.PathEscape(collectionID), localID)
	var data nftData
	if err := c.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.UTXO, nil
}

// NFTs returns the NFT outputs of a collection owned by owner together
// with the indexer height the answer reflects.
func (c *Client) NFTs(ctx context.Context, collectionID, owner string) ([]NFTUTXO, uint64, error) {
	path := "/api/collections/" + url.PathEscape(collectionID) + "/addresses/" + url.PathEscape(owner) + "/utxos"
	var data nftsData
	if err := c.get(ctx, path, &data); err != nil {
		return nil, 0, err
	}
	return data.UTXOs, data.TrackerBlockHeight, nil
}

// CollectionsByOwner returns the ids of collections in which owner holds
// at least one NFT.
func (c *Client) CollectionsByOwner(ctx context.Context, owner string) ([]string, error) {
	var data collectionsData
	if err := c.get(ctx, "/api/addresses/"+url.PathEscape(owner)+"/collections", &data); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(data.Collections))
	for _, col := range data.Collections {
		ids = append(ids, col.CollectionID)
	}
	return ids, nil
}

// LogUnavailable records a soft tracker failure at warn level.
func LogUnavailable(err error, what string) {
	ev := log.Tracker.Warn().Str("op", what)
	var ie *IndexerError
	if errors.As(err, &ie) {
		ev = ev.Str("endpoint", ie.Endpoint).Int("code", ie.Code).Str("msg", ie.Msg)
	} else {
		ev = ev.Err(err)
	}
	ev.Msg("Tracker request failed")
}
