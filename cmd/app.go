package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/karpella/ec2console/internal/auth"
	awsclient "github.com/karpella/ec2console/internal/aws"
	"github.com/karpella/ec2console/internal/config"
	"github.com/karpella/ec2console/internal/engine"
	"github.com/karpella/ec2console/internal/session"
)

// app bundles the wiring every command needs: config, the token store
// and the session manager driving it.
type app struct {
	cfg     *config.Config
	store   *session.Store
	manager *session.Manager
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateAuth(); err != nil {
		return nil, err
	}

	path, err := session.DefaultStorePath()
	if err != nil {
		return nil, fmt.Errorf("resolving token store path: %w", err)
	}
	store, err := session.OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}

	identityAPI, err := awsclient.NewIdentityClient(ctx, cfg.IdentityPoolID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building identity client: %w", err)
	}

	exchanger := auth.NewTokenClient(cfg.AuthDomain, cfg.ClientID, cfg.Redirect())
	broker := auth.NewCredentialBroker(identityAPI, cfg.IdentityPoolID, cfg.ProviderName)
	return &app{
		cfg:     cfg,
		store:   store,
		manager: session.NewManager(exchanger, broker, store),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// requireSession restores the persisted session or tells the user how
// to establish one.
func (a *app) requireSession(ctx context.Context) (auth.Identity, error) {
	identity, ok, err := a.manager.Resume(ctx)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("resuming session: %w", err)
	}
	if !ok {
		return auth.Identity{}, errors.New("not signed in, run `ec2console login` first")
	}
	return identity, nil
}

// newEngine builds the synchronization engine over per-region clients
// whose credentials come from the session manager.
func (a *app) newEngine(region string, opts engine.Options) *engine.Engine {
	manager := a.manager
	build := func(ctx context.Context, region string) (engine.Client, error) {
		creds, err := manager.Credentials(ctx)
		if err != nil {
			return nil, err
		}
		return awsclient.NewEC2Client(ctx, creds, region)
	}
	return engine.New(build, region, opts)
}
