package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/internal/repository"
	"github.com/noah-isme/content-vault-api/internal/service"
	"github.com/noah-isme/content-vault-api/pkg/cache"
	"github.com/noah-isme/content-vault-api/pkg/config"
	"github.com/noah-isme/content-vault-api/pkg/database"
	"github.com/noah-isme/content-vault-api/pkg/jobs"
	"github.com/noah-isme/content-vault-api/pkg/logger"
	"github.com/noah-isme/content-vault-api/pkg/storage"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime holds the connections one command needs. The caller must defer
// Close.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	redis  *redis.Client
}

func newRuntime(ctx context.Context, withDB bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: logr}
	if !withDB {
		return rt, nil
	}

	rt.db, err = database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	rt.redis, err = cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caches will not be invalidated", zap.Error(err))
	}
	return rt, nil
}

func (r *runtime) Close() {
	if r.redis != nil {
		_ = r.redis.Close()
	}
	if r.db != nil {
		_ = r.db.Close()
	}
	_ = r.logger.Sync()
}

func (r *runtime) cacheService() *service.CacheService {
	var repo service.CacheRepository
	if r.redis != nil {
		repo = repository.NewCacheRepository(r.redis, r.logger)
	} else {
		repo = repository.NewMemoryCacheRepository(r.cfg.Cache.MaxEntries, r.cfg.Cache.TTL)
	}
	return service.NewCacheService(repo, nil, r.cfg.Cache.TTL, r.logger, r.cfg.Cache.Enabled)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var rootCmd = &cobra.Command{
	Use:          "vaultctl",
	Short:        "Operator tool for the content vault",
	SilenceUsage: true,
}

// token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage staff access tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <user-id>",
	Short: "Sign a staff access token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer rt.Close()

		role, _ := cmd.Flags().GetString("role")
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		auth := service.NewAuthService(nil, rt.logger, service.AuthConfig{
			AccessTokenSecret: rt.cfg.JWT.Secret,
			AccessTokenExpiry: rt.cfg.JWT.Expiration,
			Issuer:            rt.cfg.JWT.Issuer,
		})
		userRole := models.UserRole(strings.ToUpper(role))
		if !userRole.Valid() {
			return fmt.Errorf("unknown role %q", role)
		}
		token, expires, err := auth.IssueToken(service.StaffIdentity{
			UserID:   args[0],
			Email:    email,
			FullName: name,
			Role:     userRole,
		}, ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "expires at %s\n", expires.Format(time.RFC3339))
		return nil
	},
}

// moderate command
var moderateCmd = &cobra.Command{
	Use:   "moderate <approve|reject> <batch|content|meme> <id>...",
	Short: "Approve or reject submissions in bulk",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var status models.SubmissionStatus
		switch strings.ToLower(args[0]) {
		case "approve":
			status = models.StatusApproved
		case "reject":
			status = models.StatusRejected
		default:
			return fmt.Errorf("unknown decision %q", args[0])
		}
		target := models.ModerationTarget(strings.ToUpper(args[1]))

		ctx := cmd.Context()
		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		actor, _ := cmd.Flags().GetString("actor")
		moderation := service.NewModerationService(service.ModerationDeps{
			Batches: repository.NewBatchRepository(rt.db),
			Content: repository.NewContentRepository(rt.db),
			Memes:   repository.NewMemeRepository(rt.db),
			Audit:   repository.NewAuditRepository(rt.db),
			Cache:   rt.cacheService(),
			Signer:  storage.NewReviewLinkSigner(rt.cfg.Review.Secret, rt.cfg.Review.TTL),
			Logger:  rt.logger,
		})
		result, err := moderation.SetStatus(ctx, service.Actor{UserID: actor, UserAgent: "vaultctl"}, target, args[2:], status)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

// blobs command
var blobsCmd = &cobra.Command{
	Use:   "blobs",
	Short: "Inspect stored file bytes",
}

var blobsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report ledger rows whose bytes are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		store, err := storage.NewFromConfig(ctx, rt.cfg.Storage)
		if err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}
		pageSize, _ := cmd.Flags().GetInt("page-size")
		janitor := service.NewBlobJanitor(store, repository.NewUploadFileRepository(rt.db), nil, rt.logger, jobs.QueueConfig{})
		missing, checked, err := janitor.VerifyLedger(ctx, pageSize)
		if err != nil {
			return err
		}
		if missing == nil {
			missing = []service.MissingBlob{}
		}
		if err := printJSON(map[string]interface{}{"checked": checked, "missing": missing}); err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("%d of %d files missing", len(missing), checked)
		}
		return nil
	},
}

var blobsSweepCmd = &cobra.Command{
	Use:   "sweep-temp",
	Short: "Remove temp files left by interrupted local writes",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer rt.Close()

		if rt.cfg.Storage.Backend != "" && rt.cfg.Storage.Backend != config.StorageLocal {
			return fmt.Errorf("sweep-temp only applies to the local backend, got %q", rt.cfg.Storage.Backend)
		}
		local, err := storage.NewLocalStorage(rt.cfg.Storage.Dir)
		if err != nil {
			return err
		}
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		removed, err := local.SweepStaleTemp(olderThan)
		if err != nil {
			return err
		}
		for _, path := range removed {
			fmt.Println(path)
		}
		fmt.Fprintf(os.Stderr, "removed %d temp files\n", len(removed))
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().String("role", string(models.RoleModerator), "Staff role")
	tokenIssueCmd.Flags().String("email", "", "Staff email")
	tokenIssueCmd.Flags().String("name", "", "Staff display name")
	tokenIssueCmd.Flags().Duration("ttl", 0, "Token lifetime; defaults to JWT_EXPIRATION")
	tokenCmd.AddCommand(tokenIssueCmd)

	moderateCmd.Flags().String("actor", "vaultctl", "User id recorded in the audit log")

	blobsVerifyCmd.Flags().Int("page-size", 500, "Ledger rows per query")
	blobsSweepCmd.Flags().Duration("older-than", time.Hour, "Minimum temp file age")
	blobsCmd.AddCommand(blobsVerifyCmd)
	blobsCmd.AddCommand(blobsSweepCmd)

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(moderateCmd)
	rootCmd.AddCommand(blobsCmd)
}
