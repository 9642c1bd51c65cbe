package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCore/internal/chain"
	"liquidityCore/internal/poolkey"
)

func newSnapshotCmd() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Read a pool snapshot from an EVM chain",
		RunE:  runSnapshot,
	}
	snapshotCmd.Flags().String("rpc", "", "EVM RPC URL")
	snapshotCmd.Flags().String("token-x", "", "first pool token")
	snapshotCmd.Flags().String("token-y", "", "second pool token")
	snapshotCmd.Flags().String("vault", "", "account holding the pool reserves")
	snapshotCmd.Flags().String("lp-token", "", "LP share token")
	addRetryFlags(snapshotCmd)
	return snapshotCmd
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var src chain.PoolSource
	for flag, dst := range map[string]*common.Address{
		"token-x":  &src.TokenX,
		"token-y":  &src.TokenY,
		"vault":    &src.Vault,
		"lp-token": &src.LPToken,
	} {
		value, _ := cmd.Flags().GetString(flag)
		addr, err := poolkey.ParseToken(value)
		if err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
		*dst = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	reader := chain.NewSnapshotReader(chainClient, chain.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
	}, logger)

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	logger.Info("snapshot start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.String("vault", src.Vault.Hex()),
		zap.String("lp_token", src.LPToken.Hex()),
	)
	snap, err := reader.Read(ctx, src)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), snap)
}
