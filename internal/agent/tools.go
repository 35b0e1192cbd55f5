// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/frontdesk-dev/frontdesk/internal/clinic"
	"github.com/frontdesk-dev/frontdesk/internal/live"
	"github.com/frontdesk-dev/frontdesk/internal/store"
	fderr "github.com/frontdesk-dev/frontdesk/pkg/errors"
)

// defaultDispatchTimeout bounds a single tool execution when the dispatcher
// is not configured with its own timeout.
const defaultDispatchTimeout = 10 * time.Second

// IdempotenceClass tells the dispatcher whether a tool may safely run more
// than once with the same arguments.
type IdempotenceClass string

const (
	// Idempotent tools are read-only or repeat-safe lookups.
	Idempotent IdempotenceClass = "idempotent"
	// AtMostOnce tools create side effects and must never be retried
	// automatically; a retry after a timeout could duplicate a booking.
	AtMostOnce IdempotenceClass = "at_most_once"
)

// Handler executes one tool call. Domain failures come back as ok:false
// results, never as raised errors.
type Handler func(ctx context.Context, args map[string]any) clinic.Result

// Tool is one registered operation: a name, an argument schema, an
// idempotence class, and the handler that performs it.
type Tool struct {
	Name        string
	Description string
	// Schema is a JSON-schema object describing the arguments. Required
	// properties listed in its "required" array are enforced before dispatch.
	Schema  map[string]any
	Class   IdempotenceClass
	Handler Handler

	compiled *jsonschema.Schema
	required []string
}

// Registry resolves tool names to operations and validates arguments. It
// performs no business logic and no retries of its own.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register compiles the tool's schema and adds it to the registry. Schemas
// are compiled once here, not per call.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Handler == nil {
		return fderr.New(fderr.CodeToolArgsInvalid, "tool registration requires a name and a handler")
	}
	if t.Class == "" {
		t.Class = Idempotent
	}

	if t.Schema != nil {
		raw, err := json.Marshal(t.Schema)
		if err != nil {
			return fderr.Wrapf(err, fderr.CodeToolArgsInvalid, "encoding schema for tool %q", t.Name)
		}
		compiled, err := jsonschema.CompileString(t.Name+".schema.json", string(raw))
		if err != nil {
			return fderr.Wrapf(err, fderr.CodeToolArgsInvalid, "compiling schema for tool %q", t.Name)
		}
		t.compiled = compiled
		if req, ok := t.Schema["required"].([]string); ok {
			t.required = req
		} else if reqAny, ok := t.Schema["required"].([]any); ok {
			for _, v := range reqAny {
				if s, ok := v.(string); ok {
					t.required = append(t.required, s)
				}
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = &t
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Schemas returns the declared tool schemas in registration order, in the
// shape the setup frame carries.
func (r *Registry) Schemas() []live.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]live.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, live.ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			Schema:      t.Schema,
		})
	}
	return out
}

// ValidateArgs checks required-argument presence and then the full schema.
// A call that fails here must never reach the handler.
func (r *Registry) ValidateArgs(t *Tool, args map[string]any) error {
	for _, name := range t.required {
		v, ok := args[name]
		if !ok || v == nil || v == "" {
			return fderr.New(
				fderr.CodeToolArgsInvalid,
				fmt.Sprintf("tool %q is missing required argument %q", t.Name, name),
				fderr.FieldTool(t.Name),
			)
		}
	}
	if t.compiled != nil {
		if err := t.compiled.Validate(anyArgs(args)); err != nil {
			return fderr.Wrapf(err, fderr.CodeToolArgsInvalid, "tool %q arguments rejected by schema", t.Name)
		}
	}
	return nil
}

// anyArgs normalizes the argument map for schema validation. nil maps
// validate as an empty object.
func anyArgs(args map[string]any) any {
	if args == nil {
		return map[string]any{}
	}
	return args
}

// DispatcherConfig holds dependencies for the Dispatcher.
type DispatcherConfig struct {
	Registry *Registry
	Audit    store.AuditStore
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Dispatcher executes validated tool calls with a per-call timeout and panic
// recovery. It never retries: at-most-once tools get exactly one attempt, and
// idempotent tools are re-invoked only when the model asks again.
type Dispatcher struct {
	registry *Registry
	audit    store.AuditStore
	timeout  time.Duration
	log      *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given registry.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, fderr.New(fderr.CodeAgentTurnInvalidInput, "Registry is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDispatchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		registry: cfg.Registry,
		audit:    cfg.Audit,
		timeout:  cfg.Timeout,
		log:      cfg.Logger,
	}, nil
}

// Dispatch resolves, validates, and executes one tool call. A returned error
// means the call was never dispatched (unknown tool, invalid arguments);
// execution failures of a dispatched call come back as ok:false results.
func (d *Dispatcher) Dispatch(ctx context.Context, call live.FunctionCall, actionBy string) (clinic.Result, error) {
	tool, ok := d.registry.Lookup(call.Name)
	if !ok {
		d.auditDispatch(ctx, call.Name, actionBy, "unknown_tool")
		return clinic.Result{}, fderr.New(
			fderr.CodeToolNotFound,
			fmt.Sprintf("no tool registered under %q", call.Name),
			fderr.FieldTool(call.Name),
		)
	}

	if err := d.registry.ValidateArgs(tool, call.Args); err != nil {
		d.auditDispatch(ctx, call.Name, actionBy, "rejected")
		return clinic.Result{}, err
	}

	execCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result := d.execute(execCtx, tool, call.Args)
	if execCtx.Err() == context.DeadlineExceeded && !result.OK {
		result = clinic.Failure("The operation took too long. Please try again.")
	}

	outcome := "ok"
	if !result.OK {
		outcome = "failed"
	}
	d.auditDispatch(ctx, call.Name, actionBy, outcome)

	return result, nil
}

// execute runs the handler, converting a panic into an ok:false result so a
// misbehaving tool cannot take down the turn loop.
func (d *Dispatcher) execute(ctx context.Context, tool *Tool, args map[string]any) (result clinic.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("tool handler panicked",
				slog.String("tool", tool.Name),
				slog.Any("panic", r))
			result = clinic.Failure("Something went wrong handling that request.")
		}
	}()
	return tool.Handler(ctx, args)
}

// auditDispatch writes a best-effort audit entry per dispatch attempt.
func (d *Dispatcher) auditDispatch(ctx context.Context, toolName, actionBy, outcome string) {
	if d.audit == nil {
		return
	}
	entry := &store.AuditEntry{
		ID:        uuid.New().String(),
		Event:     "tool_dispatch",
		Detail:    toolName + ": " + outcome,
		ActionBy:  actionBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.audit.Append(ctx, entry); err != nil {
		d.log.Warn("audit append failed",
			slog.String("tool", toolName),
			slog.Any("error", err))
	}
}
