package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ruteri/contract-spec-publisher/cryptoutils"
	"github.com/ruteri/contract-spec-publisher/interfaces"
	"github.com/ruteri/contract-spec-publisher/metadata"
)

const broadcastModeSync = "BROADCAST_MODE_SYNC"

// WriteTx writes msgs as a single transaction and blocks until it is included
// in a block. The account fetch to broadcast cycle is repeated, up to
// MaxAttempts times, while the chain reports an account sequence mismatch.
func (c *Client) WriteTx(ctx context.Context, signer cryptoutils.Signer, msgs []metadata.Msg) (interfaces.TxResult, error) {
	start := time.Now()
	defer c.metrics.ObserveWriteTx(start)

	if len(msgs) == 0 {
		return interfaces.TxResult{}, errors.New("no messages to write")
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if lastErr != nil {
			c.log.Warn("Retrying transaction after sequence mismatch",
				slog.Int("attempt", attempt),
				"err", lastErr)
			c.metrics.IncSequenceRetry()
		}

		txHash, err := c.submit(ctx, signer, msgs)
		var rejected *RejectedError
		if errors.As(err, &rejected) && rejected.Retryable {
			c.metrics.IncBroadcast("sequence_mismatch")
			lastErr = err
			continue
		}
		if err != nil {
			return interfaces.TxResult{}, err
		}

		return c.awaitInclusion(ctx, txHash)
	}

	return interfaces.TxResult{}, fmt.Errorf("giving up after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

// submit runs one fetch-simulate-sign-broadcast cycle and returns the hash of
// the accepted transaction.
func (c *Client) submit(ctx context.Context, signer cryptoutils.Signer, msgs []metadata.Msg) (string, error) {
	account, err := c.Account(ctx, signer.Address())
	if err != nil {
		return "", err
	}

	batch := TxBatch{
		Messages:      msgs,
		AccountNumber: account.AccountNumber,
		Sequence:      account.Sequence,
	}

	estimate, err := c.simulate(ctx, signer, batch)
	if err != nil {
		return "", err
	}

	gas := GasEstimate{
		Estimate:      estimate,
		FeeAdjustment: c.cfg.FeeAdjustment,
		GasPrice:      c.cfg.GasPrice,
	}
	txBytes, err := batch.Sign(signer, c.cfg.ChainID, gas, c.cfg.FeeDenom)
	if err != nil {
		return "", err
	}

	var resp txResponseEnvelope
	err = c.postJSON(ctx, "/cosmos/tx/v1beta1/txs", txRequest{
		TxBytes: base64.StdEncoding.EncodeToString(txBytes),
		Mode:    broadcastModeSync,
	}, &resp, c.cfg.BroadcastTimeout)
	if err != nil {
		err = asRejection(err)
		var rejected *RejectedError
		if !errors.As(err, &rejected) {
			c.metrics.IncBroadcast("error")
		} else if !rejected.Retryable {
			c.metrics.IncBroadcast("rejected")
		}
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	tx := resp.TxResponse
	if tx.Code != 0 {
		rejected := newRejectedError(tx.Code, tx.Codespace, tx.RawLog, tx.TxHash)
		if !rejected.Retryable {
			c.metrics.IncBroadcast("rejected")
		}
		return "", rejected
	}

	c.metrics.IncBroadcast("accepted")
	c.log.Info("Broadcast transaction",
		slog.String("txhash", tx.TxHash),
		slog.Int("messages", len(msgs)),
		slog.Uint64("sequence", batch.Sequence),
		slog.Uint64("gas_limit", gas.Limit()),
		slog.Uint64("fee", gas.Fee()))
	return tx.TxHash, nil
}

// simulate estimates gas with a throwaway transaction signed at the batch's
// sequence with zero fee and limit.
func (c *Client) simulate(ctx context.Context, signer cryptoutils.Signer, batch TxBatch) (uint64, error) {
	txBytes, err := batch.Sign(signer, c.cfg.ChainID, GasEstimate{}, c.cfg.FeeDenom)
	if err != nil {
		return 0, err
	}

	var resp simulateResponse
	err = c.postJSON(ctx, "/cosmos/tx/v1beta1/simulate", txRequest{
		TxBytes: base64.StdEncoding.EncodeToString(txBytes),
	}, &resp, c.cfg.QueryTimeout)
	if err != nil {
		return 0, fmt.Errorf("failed to simulate transaction: %w", asRejection(err))
	}

	c.log.Debug("Simulated transaction",
		slog.Uint64("gas_used", uint64(resp.GasInfo.GasUsed)),
		slog.Uint64("sequence", batch.Sequence))
	return uint64(resp.GasInfo.GasUsed), nil
}

// awaitInclusion polls for the transaction until it has a height. Not found
// means still pending.
func (c *Client) awaitInclusion(ctx context.Context, txHash string) (interfaces.TxResult, error) {
	for polls := 1; polls <= c.cfg.MaxPolls; polls++ {
		c.metrics.IncPoll()

		var resp txResponseEnvelope
		err := c.getJSON(ctx, "/cosmos/tx/v1beta1/txs/"+url.PathEscape(txHash), &resp)
		switch {
		case isNotFound(err):
			c.log.Debug("Transaction pending", slog.String("txhash", txHash), slog.Int("poll", polls))
		case err != nil:
			return interfaces.TxResult{}, fmt.Errorf("failed to poll transaction %s: %w", txHash, err)
		case resp.TxResponse.Code > 0:
			tx := resp.TxResponse
			c.log.Warn("Transaction failed in block",
				slog.String("txhash", txHash),
				slog.Uint64("code", uint64(tx.Code)),
				slog.String("raw_log", tx.RawLog))
			rejected := newRejectedError(tx.Code, tx.Codespace, tx.RawLog, txHash)
			rejected.Retryable = false
			return interfaces.TxResult{}, rejected
		case resp.TxResponse.Height > 0:
			tx := resp.TxResponse
			c.log.Info("Transaction included",
				slog.String("txhash", txHash),
				slog.Uint64("height", uint64(tx.Height)),
				slog.Uint64("gas_used", uint64(tx.GasUsed)))
			return interfaces.TxResult{
				TxHash:    txHash,
				Height:    int64(tx.Height),
				GasWanted: uint64(tx.GasWanted),
				GasUsed:   uint64(tx.GasUsed),
			}, nil
		}

		select {
		case <-ctx.Done():
			return interfaces.TxResult{}, &TransportError{Op: "poll " + txHash, Err: ctx.Err()}
		case <-time.After(c.cfg.PollInterval):
		}
	}

	return interfaces.TxResult{}, &TimeoutError{TxHash: txHash, Polls: c.cfg.MaxPolls}
}
