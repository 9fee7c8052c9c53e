// Package gateway delivers sealed blocks to peer nodes. The HTTP gateway is
// used by running nodes; the Local gateway connects ledgers that live in the
// same process.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/ardanlabs/votechain/foundation/blockchain/peer"
)

const baseURL = "http://%s/v1/node"

// HTTP delivers blocks to the private API of every known peer. This
// implements the state.Gateway interface.
type HTTP struct {
	host      string
	peers     *peer.PeerSet
	client    *http.Client
	evHandler func(v string, args ...any)
}

// NewHTTP constructs a gateway that sends to the peers in the set, skipping
// the specified host which is the node itself.
func NewHTTP(host string, peers *peer.PeerSet, timeout time.Duration, evHandler func(v string, args ...any)) *HTTP {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	return &HTTP{
		host:      host,
		peers:     peers,
		client:    &http.Client{Timeout: timeout},
		evHandler: evHandler,
	}
}

// Broadcast sends the block to every known peer. A peer that can't be
// reached does not stop delivery to the others. Nothing is retried; the
// errors are returned joined for reporting.
func (g *HTTP) Broadcast(ctx context.Context, blockData database.BlockData) error {
	g.evHandler("gateway: Broadcast: started: blk[%d]", blockData.Index)
	defer g.evHandler("gateway: Broadcast: completed: blk[%d]", blockData.Index)

	var errs []error
	for _, pr := range g.peers.Copy(g.host) {
		url := fmt.Sprintf("%s/block/propose", fmt.Sprintf(baseURL, pr.Host))

		var status struct {
			Status string `json:"status"`
		}

		if err := send(ctx, g.client, http.MethodPost, url, blockData, &status); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pr.Host, err))
			continue
		}

		g.evHandler("gateway: Broadcast: sent to peer[%s]: status[%s]", pr, status.Status)
	}

	return errors.Join(errs...)
}

// =============================================================================

// send is a helper function to send an HTTP request to a node.
func send(ctx context.Context, client *http.Client, method string, url string, dataSend any, dataRecv any) error {
	var body io.Reader
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if dataSend != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
