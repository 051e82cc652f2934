// Package voteprocessing wires the vote-processing bounded context: the
// stateless ingestion HTTP front-end, the validation worker that owns the
// credential and audit stores, and the aggregator that owns the tally
// store. Dependencies assembles whichever of the three a process needs;
// cmd/ entrypoints decide which to run.
package voteprocessing

import (
	"log/slog"
	"time"

	httpadapter "votepipeline/contexts/voteprocessing/adapters/http"
	"votepipeline/contexts/voteprocessing/adapters/memory"
	"votepipeline/contexts/voteprocessing/application/aggregation"
	"votepipeline/contexts/voteprocessing/application/ingestion"
	"votepipeline/contexts/voteprocessing/application/validation"
	"votepipeline/contexts/voteprocessing/ports"
	"votepipeline/internal/platform/retry"
)

// Module is the ingestion process's public surface: an HTTP handler bound
// to the use cases, plus the in-memory store (nil in production) so tests
// can seed and inspect it directly.
type Module struct {
	Handler httpadapter.Handler

	CredentialStore *memory.CredentialStore
	Store           *memory.AuditTallyStore
	Bus             *memory.Bus
}

// Dependencies are the ports every process in this context is assembled
// from. A given process wires only the subset it needs: ingestion needs
// Bus/Elections/Clock/IDGen for submissions plus Tallies/Audit for the
// results and reconciliation reads and Credentials for /health, the
// validator needs
// Credentials/Audit/Bus/Elections, the aggregator needs Tallies/Bus.
type Dependencies struct {
	Credentials ports.CredentialStore
	Audit       ports.AuditRepository
	Tallies     ports.TallyRepository
	Elections   ports.ElectionRepository
	Bus         ports.MessageBus
	Clock       ports.Clock
	IDGen       ports.IDGenerator

	ConfirmTimeout        time.Duration
	WorkerMessageDeadline time.Duration
	EnforceElectionWindow bool
	BatchSize             int
	BatchInterval         time.Duration
	RetryPolicy           retry.Policy

	Logger *slog.Logger
}

// NewModule assembles the ingestion process's HTTP handler.
func NewModule(deps Dependencies) Module {
	submit := ingestion.SubmitUseCase{
		Bus:            deps.Bus,
		Elections:      deps.Elections,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		ConfirmTimeout: deps.ConfirmTimeout,
		Logger:         deps.Logger,
	}
	results := ingestion.ResultsUseCase{Tallies: deps.Tallies}
	health := ingestion.HealthUseCase{Bus: deps.Bus, Credentials: deps.Credentials}
	reconciliation := ingestion.ReconciliationUseCase{Audit: deps.Audit, Tallies: deps.Tallies}

	return Module{
		Handler: httpadapter.Handler{
			Submit:         submit,
			Results:        results,
			Health:         health,
			Reconciliation: reconciliation,
			Logger:         deps.Logger,
		},
	}
}

// NewValidationWorker assembles the validator process's worker.
func NewValidationWorker(deps Dependencies) validation.Worker {
	return validation.Worker{
		Credentials:           deps.Credentials,
		Audit:                 deps.Audit,
		Tallies:               deps.Tallies,
		Elections:             deps.Elections,
		Bus:                   deps.Bus,
		Clock:                 deps.Clock,
		ConfirmTimeout:        deps.ConfirmTimeout,
		MessageDeadline:       deps.WorkerMessageDeadline,
		EnforceElectionWindow: deps.EnforceElectionWindow,
		Logger:                deps.Logger,
	}
}

// NewAggregator assembles the aggregator process's batching consumer.
func NewAggregator(deps Dependencies) *aggregation.Aggregator {
	return &aggregation.Aggregator{
		Tallies:        deps.Tallies,
		Bus:            deps.Bus,
		BatchSize:      deps.BatchSize,
		BatchInterval:  deps.BatchInterval,
		RetryPolicy:    deps.RetryPolicy,
		ConfirmTimeout: deps.ConfirmTimeout,
		Logger:         deps.Logger,
	}
}

// NewInMemoryModule assembles every port with the in-memory adapters, for
// tests that want a full ingestion-through-aggregation pipeline without a
// broker or a database.
func NewInMemoryModule(logger *slog.Logger) (Module, *memory.CredentialStore, *memory.AuditTallyStore, *memory.Bus) {
	credentials := memory.NewCredentialStore()
	store := memory.NewAuditTallyStore()
	bus := memory.NewBus()

	module := NewModule(Dependencies{
		Credentials:    credentials,
		Audit:          store,
		Tallies:        store,
		Elections:      store,
		Bus:            bus,
		Clock:          ports.SystemClock{},
		IDGen:          memory.IDGenerator{},
		ConfirmTimeout: 5 * time.Second,
	})
	module.CredentialStore = credentials
	module.Store = store
	module.Bus = bus
	return module, credentials, store, bus
}
