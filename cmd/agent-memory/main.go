package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentvault/synccore/internal/aead"
	"github.com/agentvault/synccore/internal/background"
	"github.com/agentvault/synccore/internal/config"
	"github.com/agentvault/synccore/internal/errs"
	"github.com/agentvault/synccore/internal/keys"
	"github.com/agentvault/synccore/internal/ledger"
	"github.com/agentvault/synccore/internal/logging"
	"github.com/agentvault/synccore/internal/phrase"
	"github.com/agentvault/synccore/internal/store"
	"github.com/agentvault/synccore/internal/sync"
)

// rootCmd wires the sync engine and background loop into a
// long-running process. The interactive CLI front-end (init, recall,
// forget, status) and the real permanent-ledger transport are
// external collaborators (spec.md §1); besides the daemon, this binary
// only carries the maintenance subcommands export, import, stats,
// check-version and recover.
var rootCmd = &cobra.Command{
	Use:   "agent-memory",
	Short: "Sovereign encrypted memory sync daemon",
	RunE:  runDaemon,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// engineSetup bundles everything derived from config + recovery phrase
// that every subcommand needs to talk to the local store and ledger.
type engineSetup struct {
	Engine   *sync.Engine
	Identity *keys.Identity
	Salt     []byte
	Log      zerolog.Logger
}

// setupEngine loads config, validates the recovery phrase, derives the
// identity and symmetric key (C1), persists/verifies the on-disk salt
// and identity.enc (spec.md §6), and opens the local store and a
// sync.Engine against it. Every subcommand that touches the store or
// the ledger starts here; call Close when done with the returned
// setup's Engine.Store.
func setupEngine() (*engineSetup, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	keys.SetAppName(cfg.AppName)

	log := logging.New(logging.Options{})

	recoveryPhrase := os.Getenv("AGENTVAULT_RECOVERY_PHRASE")
	if recoveryPhrase == "" {
		return nil, fmt.Errorf("AGENTVAULT_RECOVERY_PHRASE not set; passphrase acquisition is a collaborator concern outside this core")
	}
	if err := phrase.Validate(recoveryPhrase); err != nil {
		return nil, fmt.Errorf("recovery phrase: %w", err)
	}

	if err := os.MkdirAll(cfg.HomeDir, 0700); err != nil {
		return nil, fmt.Errorf("create home dir: %w", err)
	}

	salt, err := loadOrCreateSalt(cfg.SaltPath())
	if err != nil {
		return nil, fmt.Errorf("load salt: %w", err)
	}

	identity, err := keys.DeriveIdentity(recoveryPhrase)
	if err != nil {
		return nil, fmt.Errorf("derive identity: %w", err)
	}
	symKey := keys.DeriveSymmetricKey(recoveryPhrase, salt)

	if err := loadOrCreateIdentity(cfg.IdentityPath(), symKey, identity); err != nil {
		return nil, fmt.Errorf("local identity: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// The real permanent-ledger transport is an external collaborator
	// (spec.md §1); MemoryAdapter stands in so this binary runs without
	// one wired in yet.
	adapter := ledger.NewMemoryAdapter()

	engine := sync.New(st, adapter, cfg.AppName, identity.WalletID, identity.PrivateKey, symKey, cfg.FreeUploadBudgetBytes, log)

	return &engineSetup{Engine: engine, Identity: identity, Salt: salt, Log: log}, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setup, err := setupEngine()
	if err != nil {
		return err
	}
	engine := setup.Engine
	defer engine.Store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := engine.PushIdentity(ctx, setup.Salt); err != nil {
		setup.Log.Warn().Err(err).Msg("push identity failed, will not retry until restart")
	}

	loop := background.New(engine, noopDiscoverer{}, nil, cfg.FactSyncPeriod, cfg.ConversationWatchPeriod, setup.Log)
	if err := loop.Start(ctx); err != nil {
		return fmt.Errorf("start background loop: %w", err)
	}

	setup.Log.Info().Str("wallet", setup.Identity.WalletID).Msg("agent-memory daemon running")
	<-ctx.Done()
	loop.Stop()
	return nil
}

// loadOrCreateIdentity persists the derived private key to disk as an
// AEAD-sealed blob (spec.md §6's identity.enc), mode 0600. On a fresh
// machine it writes the blob; on every later start it decrypts the
// existing blob and checks it against the freshly-derived key, the
// same mismatch-is-fatal check PullAndReconstruct applies to the
// ledger's identity record (spec.md §4.8.5 steps 2-3).
func loadOrCreateIdentity(path string, symKey []byte, identity *keys.Identity) error {
	sealed, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		sealed, err = aead.Encrypt(symKey, identity.PrivateKey.Serialize())
		if err != nil {
			return fmt.Errorf("encrypt identity: %w", err)
		}
		return os.WriteFile(path, sealed, 0600)
	}

	decrypted, err := aead.Decrypt(symKey, sealed)
	if err != nil {
		return fmt.Errorf("decrypt %s: %w", path, err)
	}
	if !bytes.Equal(decrypted, identity.PrivateKey.Serialize()) {
		return errs.ErrIdentityMismatch
	}
	return nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	if b, err := os.ReadFile(path); err == nil {
		return b, nil
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, salt, 0600); err != nil {
		return nil, err
	}
	return salt, nil
}

// noopDiscoverer finds no transcripts. Real transcript discovery
// (walking editor-specific directories) is an external collaborator's
// concern (spec.md §6); the conversation watcher tick is a no-op until
// one is wired in.
type noopDiscoverer struct{}

func (noopDiscoverer) Discover(ctx context.Context) ([]background.TranscriptSource, error) {
	return nil, nil
}
