package onboarding

import "context"

// Provider is the injected wallet capability.
type Provider interface {
	IsInstalled() bool
	// RequestAccounts asks the wallet for the user's accounts. It may block
	// until the user answers and may never return on its own.
	RequestAccounts(ctx context.Context) ([]string, error)
}

// Installer drives the guided install flow for a missing provider.
type Installer interface {
	StartInstallFlow()
	StopInstallFlow()
}

// InstallerFactory builds the gate's single installer on first use.
type InstallerFactory func() Installer

// Animator plays the success animation once the gate connects.
type Animator interface {
	PlaySuccess()
}

// ProviderFunc adapts two functions into a Provider.
type ProviderFunc struct {
	Installed func() bool
	Request   func(ctx context.Context) ([]string, error)
}

func (p ProviderFunc) IsInstalled() bool {
	if p.Installed == nil {
		return false
	}
	return p.Installed()
}

func (p ProviderFunc) RequestAccounts(ctx context.Context) ([]string, error) {
	if p.Request == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.Request(ctx)
}
