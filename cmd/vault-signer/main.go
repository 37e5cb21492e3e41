package main

import (
	"net/http"
	"os"

	"github.com/hashicorp/vault/api"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/xueqianLu/ethvault/internal/config"
	"github.com/xueqianLu/ethvault/internal/handler"
	"github.com/xueqianLu/ethvault/internal/middleware"
	"github.com/xueqianLu/ethvault/internal/server"
	"github.com/xueqianLu/ethvault/internal/signer"
)

var log = logrus.WithField("prefix", "main")

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	var (
		keyManager signer.KeyManager
		ksManager  *signer.KeystoreManager
	)
	switch cfg.KeyManager.Type {
	case "local":
		cost, err := cfg.KeyManager.Local.ScryptCost()
		if err != nil {
			log.WithError(err).Fatal("Invalid scrypt configuration")
		}
		ksManager, err = signer.NewKeystoreManager(cfg.KeyManager.Local.KeystoreDir, cost)
		if err != nil {
			log.WithError(err).Fatal("Failed to open keystore")
		}
		keyManager = ksManager
	case "vault":
		vaultConfig := api.DefaultConfig()
		if err := vaultConfig.ReadEnvironment(); err != nil {
			log.WithError(err).Warn("Could not read Vault environment variables")
		}
		if cfg.KeyManager.Vault.Address != "" {
			vaultConfig.Address = cfg.KeyManager.Vault.Address
		}
		vaultClient, err := api.NewClient(vaultConfig)
		if err != nil {
			log.WithError(err).Fatal("Failed to create Vault client")
		}
		if cfg.KeyManager.Vault.Token != "" {
			vaultClient.SetToken(cfg.KeyManager.Vault.Token)
		}
		keyManager, err = signer.NewVaultManager(vaultClient, cfg.KeyManager.Vault.TransitPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to create Vault key manager")
		}
	default:
		log.WithField("type", cfg.KeyManager.Type).Fatal("Unknown key manager type")
	}

	apiSecret := cfg.Auth.APISecret
	if apiSecret == "" {
		apiSecret = promptSecret("API secret: ")
		if apiSecret == "" {
			log.Fatal("No API secret configured and none entered")
		}
	}

	ethSigner := signer.New(keyManager)
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.APIKey, apiSecret)

	mux := http.NewServeMux()
	mux.Handle("/health", handler.NewHealthHandler())
	mux.Handle("/accounts", authMiddleware.Wrap(handler.NewAccountsHandler(keyManager)))
	mux.Handle("/create-account", authMiddleware.Wrap(handler.NewCreateAccountHandler(keyManager)))
	mux.Handle("/sign-transaction", authMiddleware.Wrap(handler.NewSignTxHandler(ethSigner)))
	mux.Handle("/sign-message", authMiddleware.Wrap(handler.NewSignMessageHandler(ethSigner)))

	// Lifecycle and unlock endpoints only exist for the local keystore:
	// Vault keys never leave the server and have no passphrase to rotate.
	if ksManager != nil {
		ks := ksManager.KeyStore()
		defaultTimeout := cfg.KeyManager.Local.DefaultUnlockTimeout
		mux.Handle("/unlock", authMiddleware.Wrap(handler.NewUnlockHandler(ksManager, defaultTimeout)))
		mux.Handle("/lock", authMiddleware.Wrap(handler.NewLockHandler(ksManager)))
		mux.Handle("/import-key", authMiddleware.Wrap(handler.NewImportKeyHandler(ks)))
		mux.Handle("/export-key", authMiddleware.Wrap(handler.NewExportKeyHandler(ks)))
		mux.Handle("/update-passphrase", authMiddleware.Wrap(handler.NewUpdatePassphraseHandler(ks)))
		mux.Handle("/delete-account", authMiddleware.Wrap(handler.NewDeleteAccountHandler(ks)))
	}

	srv := server.NewServer(mux, cfg.Server.Port)
	log.WithField("port", cfg.Server.Port).Info("Signer service listening")
	log.Fatal(srv.ListenAndServe())
}

// promptSecret reads a secret from the terminal without echo. Returns empty
// when stdin is not a terminal.
func promptSecret(prompt string) string {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ""
	}
	os.Stderr.WriteString(prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	os.Stderr.WriteString("\n")
	if err != nil {
		return ""
	}
	return string(secret)
}
