// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package main

import (
	"context"

	"github.com/frontdesk-dev/frontdesk/internal/agent"
	"github.com/frontdesk-dev/frontdesk/internal/clinic"
	"github.com/frontdesk-dev/frontdesk/internal/config"
	"github.com/frontdesk-dev/frontdesk/internal/live"
	"github.com/frontdesk-dev/frontdesk/internal/store/sqlite"
	fderr "github.com/frontdesk-dev/frontdesk/pkg/errors"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Store *sqlite.ClinicStore
	Loop  *agent.Loop
}

// WireApp creates the store, the clinic tools, the tool registry, and the
// turn loop, connected to the configured streaming backend.
func WireApp(cfg *config.Config) (*App, error) {
	// 1. Clinic store (patients, services, appointments, memory, audit).
	st, err := sqlite.NewClinicStore(cfg.Storage.Path)
	if err != nil {
		return nil, fderr.Wrapf(err, fderr.CodeCLISetupFailure, "opening clinic store at %s", cfg.Storage.Path)
	}

	// 2. Domain tools with the verification lockout policy.
	tools := clinic.NewTools(clinic.ToolsConfig{
		Store:   st,
		Lockout: clinic.NewLockout(cfg.Lockout.Threshold, cfg.Lockout.Window),
	})

	// 3. Tool registry and dispatcher.
	registry, err := agent.ClinicRegistry(tools)
	if err != nil {
		_ = st.Close()
		return nil, fderr.Wrapf(err, fderr.CodeCLISetupFailure, "building tool registry")
	}
	dispatcher, err := agent.NewDispatcher(agent.DispatcherConfig{
		Registry: registry,
		Audit:    st.AuditLog(),
	})
	if err != nil {
		_ = st.Close()
		return nil, fderr.Wrapf(err, fderr.CodeCLISetupFailure, "building tool dispatcher")
	}

	// 4. Turn loop over the live backend.
	dial := func(ctx context.Context, sessionContext map[string]any) (agent.LiveSession, error) {
		return live.Dial(ctx, live.Config{
			URL:               cfg.Live.Endpoint,
			APIKey:            cfg.Live.APIKey,
			Model:             cfg.Live.Model,
			SystemInstruction: agent.SystemInstruction,
			Tools:             registry.Schemas(),
			MaxOutputTokens:   cfg.Live.MaxOutputTokens,
			ReceiveTimeout:    cfg.Live.ReceiveTimeout,
			SessionContext:    sessionContext,
		})
	}
	loop, err := agent.NewLoop(agent.LoopConfig{
		Sessions:      agent.NewSessionManager(),
		Dispatcher:    dispatcher,
		Conversations: st.Conversations(),
		Audit:         st.AuditLog(),
		Dial:          dial,
		MaxSteps:      cfg.Agent.MaxSteps,
		HistoryWindow: cfg.Agent.HistoryWindow,
	})
	if err != nil {
		_ = st.Close()
		return nil, fderr.Wrapf(err, fderr.CodeCLISetupFailure, "building turn loop")
	}

	return &App{Store: st, Loop: loop}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
