package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/autofragment/internal/infrastructure/database/redis"
	"github.com/turtacn/autofragment/pkg/errors"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the Redis fragment cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete every cached fragment table",
		Args:  cobra.NoArgs,
		RunE:  runCachePurge,
	})
	return cmd
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	rc := cliCtx.Config.Redis
	if !rc.Enabled {
		return errors.New(errors.ErrCodeFeatureDisabled, "redis cache is not enabled")
	}

	client, err := redis.NewClient(&rc.RedisConfig, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	cache := redis.NewFragmentCache(client, cliCtx.Logger, redis.WithPrefix(rc.KeyPrefix))
	n, err := cache.Purge(ctx)
	if err != nil {
		return err
	}
	PrintSuccess(cmd, fmt.Sprintf("purged %d cached fragment tables", n))
	return nil
}

//Personal.AI order the ending
