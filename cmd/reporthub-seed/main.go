// Command reporthub-seed creates the "master" administrator account on the
// configured document store, or resets its password when it exists. It reads the same REPORTHUB_* configuration as
// the server and prompts for the password without echo.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dalemusser/reporthub/internal/app/bootstrap"
	"github.com/dalemusser/reporthub/internal/app/store/docstore"
	userstore "github.com/dalemusser/reporthub/internal/app/store/users"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var readPassword = term.ReadPassword

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), logger); err != nil {
		logger.Error("seed failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	coreCfg, appCfg, err := bootstrap.LoadConfig(logger)
	if err != nil {
		return err
	}
	if err := bootstrap.ValidateConfig(coreCfg, appCfg, logger); err != nil {
		return err
	}
	if appCfg.StoreBackend == docstore.BackendMemory {
		return errors.New("the memory backend keeps nothing between runs; seed a mongo or firestore store")
	}

	in := bufio.NewReader(os.Stdin)
	password, err := promptPassword(in, os.Stderr)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(os.Getenv("REPORTHUB_MASTER_NAME"))

	deps, err := bootstrap.ConnectDB(ctx, coreCfg, appCfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Store.Close(context.Background()) }()

	users := userstore.New(deps.Store, logger)
	if err := users.EnsureIndexes(ctx); err != nil {
		logger.Warn("user indexes not ensured", zap.Error(err))
	}
	created, err := users.SeedMaster(ctx, password, name)
	if err != nil {
		return err
	}
	if created {
		logger.Info("master account created", zap.String("backend", deps.Backend))
	} else {
		logger.Info("master account existed: password reset and account re-enabled", zap.String("backend", deps.Backend))
	}
	return nil
}

// promptPassword asks twice on a terminal. Piped input is read as a single
// line so the tool can run unattended.
func promptPassword(in *bufio.Reader, w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(w, "Password per master: ")
	first, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	fmt.Fprint(w, "Conferma password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
