// Package service implements the command and query surface of the land
// registry. It is the single writer: every mutating command is serialized
// behind one mutex and applied all-or-nothing, and every query observes a
// committed snapshot. Presentation layers consume this surface and keep no
// authoritative copy of their own.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"landregistry/internal/identity"
	identitymetrics "landregistry/internal/identity/metrics"
	"landregistry/internal/land"
	"landregistry/internal/registry/metrics"
	"landregistry/internal/transfer"
	"landregistry/pkg/domain"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/platform/audit"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/requestcontext"
)

// TxRunner wraps a mutating command in a storage transaction. The in-memory
// stores need no transaction (the service mutex already serializes them);
// the PostgreSQL runner in cmd/server makes the dual write of a transfer
// approval commit atomically.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noopTxRunner struct{}

func (noopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// LandCache is the optional read-side cache. The service invalidates it on
// every committed mutation; it is never consulted for anything but GetLand.
type LandCache interface {
	Get(ctx context.Context, id domain.LandID) (*land.Record, error)
	Set(ctx context.Context, record *land.Record) error
	Invalidate(ctx context.Context, id domain.LandID) error
}

// Service orchestrates the identity registry, land ledger and transfer
// workflow.
type Service struct {
	mu         sync.RWMutex
	identities identity.Store
	lands      land.Store
	transfers  transfer.Store

	runner    TxRunner
	logger    *slog.Logger
	metrics   *metrics.Metrics
	idMetrics *identitymetrics.Metrics
	audit     audit.Publisher
	cache     LandCache
	tracer    trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithIdentityMetrics(m *identitymetrics.Metrics) Option {
	return func(s *Service) { s.idMetrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithTxRunner(runner TxRunner) Option {
	return func(s *Service) {
		if runner != nil {
			s.runner = runner
		}
	}
}

func WithCache(cache LandCache) Option {
	return func(s *Service) { s.cache = cache }
}

// New constructs the registry service.
func New(identities identity.Store, lands land.Store, transfers transfer.Store, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		lands:      lands,
		transfers:  transfers,
		runner:     noopTxRunner{},
		tracer:     otel.Tracer("landregistry/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

// RegisterUser binds a profile to the caller credential. A credential
// registers at most once, and a national id may not be bound to a second
// credential.
func (s *Service) RegisterUser(ctx context.Context, cred domain.Credential, name string, nationalID domain.NationalID, role domain.Role) (profile *identity.Profile, err error) {
	ctx, span := s.tracer.Start(ctx, "registry.RegisterUser")
	defer span.End()
	defer s.observe("register_user", time.Now(), &err)

	profile, err = identity.NewProfile(cred, name, nationalID, role, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.identities.Create(ctx, profile)
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrCredentialTaken):
			return nil, dErrors.New(dErrors.CodeAlreadyRegistered, "credential already has a registered profile")
		case errors.Is(err, identity.ErrNationalIDTaken):
			return nil, dErrors.New(dErrors.CodeDuplicateNationalID, "national id is bound to a different credential")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register user")
		}
	}

	if s.idMetrics != nil {
		s.idMetrics.IncrementRegistered()
	}
	s.emitAudit(ctx, cred, audit.ActionUserRegistered, 0, nationalID.String(), "")
	return profile, nil
}

// RequestLandRegistration creates a pending parcel record owned by the
// caller. Any registered identity may request; ids are never recycled.
func (s *Service) RequestLandRegistration(ctx context.Context, cred domain.Credential, landID int64, ownerName string, nationalID domain.NationalID, titleNumber, location string, size int64, landType string) (record *land.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "registry.RequestLandRegistration")
	defer span.End()
	defer s.observe("request_land_registration", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireRegistered(ctx, cred); err != nil {
		return nil, err
	}

	id, err := domain.ParseLandID(landID)
	if err != nil {
		return nil, err
	}

	if _, err := s.lands.FindByID(ctx, id); err == nil {
		return nil, dErrors.New(dErrors.CodeDuplicateLandID, "land id "+id.String()+" already requested")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check land id")
	}

	record, err = land.NewRecord(id, cred, ownerName, nationalID, titleNumber, location, size, landType, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.lands.Create(ctx, record)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeDuplicateLandID, "land id "+id.String()+" already requested")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create land record")
	}

	s.invalidate(ctx, id)
	s.emitAudit(ctx, cred, audit.ActionLandRequested, id.Int64(), titleNumber, "")
	return record, nil
}

// ApproveLand registers a pending parcel. Government only; the decision is
// final.
func (s *Service) ApproveLand(ctx context.Context, cred domain.Credential, landID domain.LandID) (record *land.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "registry.ApproveLand")
	defer span.End()
	defer s.observe("approve_land", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, cred, domain.RoleGovernment); err != nil {
		return nil, err
	}

	record, err = s.findLand(ctx, landID)
	if err != nil {
		return nil, err
	}
	if err := record.CanDecide(); err != nil {
		return nil, err
	}
	record.ApplyApproval(requestcontext.Now(ctx))

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.lands.Update(ctx, record)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve land")
	}

	s.invalidate(ctx, landID)
	s.emitAudit(ctx, cred, audit.ActionLandApproved, landID.Int64(), record.TitleNumber, "")
	return record, nil
}

// RejectLand rejects a pending parcel with a mandatory reason, permanently
// excluding it from future approval.
func (s *Service) RejectLand(ctx context.Context, cred domain.Credential, landID domain.LandID, reason string) (record *land.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "registry.RejectLand")
	defer span.End()
	defer s.observe("reject_land", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, cred, domain.RoleGovernment); err != nil {
		return nil, err
	}

	record, err = s.findLand(ctx, landID)
	if err != nil {
		return nil, err
	}
	if err := record.CanDecide(); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeMissingReason, "a rejection reason is required")
	}
	record.ApplyRejection(reason, requestcontext.Now(ctx))

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.lands.Update(ctx, record)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject land")
	}

	s.invalidate(ctx, landID)
	s.emitAudit(ctx, cred, audit.ActionLandRejected, landID.Int64(), record.TitleNumber, reason)
	return record, nil
}

// RequestTransfer opens an ownership transfer for a registered parcel. Only
// the current owner may open one, and only one may be open at a time. The
// proposed new owner is referenced by national id; resolution is deferred to
// decision time, so the new owner's registration can happen after the
// request.
func (s *Service) RequestTransfer(ctx context.Context, cred domain.Credential, landID domain.LandID, toNationalID domain.NationalID, proposedOwnerName string) (request *transfer.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "registry.RequestTransfer")
	defer span.End()
	defer s.observe("request_transfer", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.findLand(ctx, landID)
	if err != nil {
		return nil, err
	}
	if record.Status() != land.StatusRegistered {
		return nil, dErrors.New(dErrors.CodeNotRegistered, "parcel registration is not approved")
	}
	if record.CurrentOwner != cred {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the current owner may request a transfer")
	}
	if _, err := s.transfers.FindOpen(ctx, landID); err == nil {
		return nil, dErrors.New(dErrors.CodeTransferAlreadyPending, "a transfer request is already pending for this parcel")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check open transfers")
	}

	// The target may be unregistered at this point; reject only when it
	// already resolves to the current owner.
	if target, err := s.identities.FindByNationalID(ctx, toNationalID); err == nil {
		if target.Credential == record.CurrentOwner {
			return nil, dErrors.New(dErrors.CodeSameOwner, "proposed owner already owns this parcel")
		}
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve proposed owner")
	}

	request, err = transfer.NewRequest(landID, cred, toNationalID, proposedOwnerName, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.transfers.Create(ctx, request)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeTransferAlreadyPending, "a transfer request is already pending for this parcel")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create transfer request")
	}

	s.emitAudit(ctx, cred, audit.ActionTransferRequested, landID.Int64(), toNationalID.String(), "")
	return request, nil
}

// ApproveTransfer resolves the proposed owner and commits the decision and
// the owner change as one logical transition: no reader observes the request
// approved while the record still shows the old owner, or vice versa.
func (s *Service) ApproveTransfer(ctx context.Context, cred domain.Credential, landID domain.LandID) (request *transfer.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "registry.ApproveTransfer")
	defer span.End()
	defer s.observe("approve_transfer", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, cred, domain.RoleGovernment); err != nil {
		return nil, err
	}

	request, err = s.findOpenTransfer(ctx, landID)
	if err != nil {
		return nil, err
	}
	if err := request.CanDecide(); err != nil {
		return nil, err
	}

	start := time.Now()
	target, err := s.identities.FindByNationalID(ctx, request.ToNationalID)
	if s.idMetrics != nil {
		s.idMetrics.ObserveLookup(start)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnknownNationalID, "proposed owner "+request.ToNationalID.String()+" is not a registered identity")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve proposed owner")
	}

	record, err := s.findLand(ctx, landID)
	if err != nil {
		return nil, err
	}
	if target.Credential == record.CurrentOwner {
		return nil, dErrors.New(dErrors.CodeSameOwner, "proposed owner already owns this parcel")
	}

	now := requestcontext.Now(ctx)
	request.ApplyApproval(now)
	record.ApplyOwnerChange(target.Credential)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.transfers.Resolve(ctx, request); err != nil {
			return err
		}
		return s.lands.Update(ctx, record)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve transfer")
	}

	s.invalidate(ctx, landID)
	s.emitAudit(ctx, cred, audit.ActionTransferApproved, landID.Int64(), target.Credential.String(), "")
	return request, nil
}

// RejectTransfer closes the open request without touching ownership. A fresh
// request may be opened for the same parcel afterward.
func (s *Service) RejectTransfer(ctx context.Context, cred domain.Credential, landID domain.LandID) (request *transfer.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "registry.RejectTransfer")
	defer span.End()
	defer s.observe("reject_transfer", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, cred, domain.RoleGovernment); err != nil {
		return nil, err
	}

	request, err = s.findOpenTransfer(ctx, landID)
	if err != nil {
		return nil, err
	}
	if err := request.CanDecide(); err != nil {
		return nil, err
	}
	request.ApplyRejection(requestcontext.Now(ctx))

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.transfers.Resolve(ctx, request)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject transfer")
	}

	s.emitAudit(ctx, cred, audit.ActionTransferRejected, landID.Int64(), request.ToNationalID.String(), "")
	return request, nil
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// LookupByCredential returns the profile registered for a credential.
func (s *Service) LookupByCredential(ctx context.Context, cred domain.Credential) (*identity.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, err := s.identities.FindByCredential(ctx, cred)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no profile registered for credential")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up profile")
	}
	return profile, nil
}

// LookupByNationalID resolves a national id to a profile.
func (s *Service) LookupByNationalID(ctx context.Context, nationalID domain.NationalID) (*identity.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	profile, err := s.identities.FindByNationalID(ctx, nationalID)
	if s.idMetrics != nil {
		s.idMetrics.ObserveLookup(start)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no profile registered for national id")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up profile")
	}
	return profile, nil
}

// GetLand returns a parcel record. Cached reads are served only when the
// cache holds the record the core committed; every mutation invalidates.
func (s *Service) GetLand(ctx context.Context, landID domain.LandID) (*land.Record, error) {
	if s.cache != nil {
		if rec, err := s.cache.Get(ctx, landID); err == nil && rec != nil {
			return rec, nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, err := s.findLand(ctx, landID)
	if err != nil {
		return nil, err
	}

	// Repopulate while still holding the read lock. A writer invalidates
	// under the write lock, so its invalidation is always ordered after any
	// Set that read the previous state; a Set after the unlock could land a
	// stale record back in the cache behind a committed mutation.
	if s.cache != nil {
		if err := s.cache.Set(ctx, record); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "land cache set failed", "land_id", landID.Int64(), "error", err)
		}
	}
	return record, nil
}

// ListLandIDs returns every land id ever requested, ascending.
func (s *Service) ListLandIDs(ctx context.Context) ([]domain.LandID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.lands.ListIDs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list land ids")
	}
	return ids, nil
}

// ListByStatus returns parcels in the given state, ascending by id.
func (s *Service) ListByStatus(ctx context.Context, status land.Status) ([]*land.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.lands.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list land records")
	}
	return records, nil
}

// ListByOwner returns parcels currently owned by a credential, ascending.
func (s *Service) ListByOwner(ctx context.Context, cred domain.Credential) ([]*land.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.lands.ListByOwner(ctx, cred)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list land records")
	}
	return records, nil
}

// ListTransferHistory returns the decided transfer requests for a parcel in
// decision order, oldest first. The parcel must exist; an empty history is
// not an error.
func (s *Service) ListTransferHistory(ctx context.Context, landID domain.LandID) ([]*transfer.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.findLand(ctx, landID); err != nil {
		return nil, err
	}
	history, err := s.transfers.ListDecided(ctx, landID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transfer history")
	}
	return history, nil
}

// ListOpenTransfers returns land ids with an open transfer request,
// ascending.
func (s *Service) ListOpenTransfers(ctx context.Context) ([]domain.LandID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.transfers.ListOpenIDs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list open transfers")
	}
	return ids, nil
}

// RequireRole is the single authorization gate: it fails with Unauthorized
// unless the credential is registered with the given role.
func (s *Service) RequireRole(ctx context.Context, cred domain.Credential, role domain.Role) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requireRole(ctx, cred, role)
}

// -----------------------------------------------------------------------------
// Internals (callers hold s.mu)
// -----------------------------------------------------------------------------

func (s *Service) requireRole(ctx context.Context, cred domain.Credential, role domain.Role) error {
	profile, err := s.identities.FindByCredential(ctx, cred)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "caller is not a registered identity")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up caller")
	}
	if !profile.HasRole(role) {
		return dErrors.New(dErrors.CodeUnauthorized, role.String()+" role required")
	}
	return nil
}

func (s *Service) requireRegistered(ctx context.Context, cred domain.Credential) (*identity.Profile, error) {
	profile, err := s.identities.FindByCredential(ctx, cred)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not a registered identity")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up caller")
	}
	return profile, nil
}

func (s *Service) findLand(ctx context.Context, landID domain.LandID) (*land.Record, error) {
	record, err := s.lands.FindByID(ctx, landID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no record for land id "+landID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load land record")
	}
	return record, nil
}

func (s *Service) findOpenTransfer(ctx context.Context, landID domain.LandID) (*transfer.Request, error) {
	request, err := s.transfers.FindOpen(ctx, landID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no open transfer request for land id "+landID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer request")
	}
	return request, nil
}

func (s *Service) invalidate(ctx context.Context, landID domain.LandID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, landID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "land cache invalidation failed",
			"land_id", landID.Int64(),
			"error", err,
		)
	}
}

func (s *Service) emitAudit(ctx context.Context, actor domain.Credential, action audit.Action, landID int64, subject, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Category:  audit.CategoryCompliance,
		Timestamp: requestcontext.Now(ctx),
		Actor:     actor,
		Action:    action,
		LandID:    landID,
		Subject:   subject,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func (s *Service) observe(command string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.ObserveCommand(command, start, *err)
	}
}
