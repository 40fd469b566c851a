package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landregistry/internal/identity"
	"landregistry/internal/land"
	"landregistry/internal/registry/service"
	"landregistry/internal/transfer"
	"landregistry/pkg/domain"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/platform/audit"
	"landregistry/pkg/platform/audit/publisher"
	"landregistry/pkg/requestcontext"
)

const (
	govCred    = domain.Credential("0xgov")
	aliceCred  = domain.Credential("0xalice")
	bobCred    = domain.Credential("0xbob")
	aliceNatID = domain.NationalID("ID-100")
	bobNatID   = domain.NationalID("ID-200")
)

type ServiceSuite struct {
	suite.Suite

	ctx   context.Context
	svc   *service.Service
	sink  *publisher.Channel
	clock time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s.ctx = requestTime(s.clock)
	s.sink = publisher.NewChannel(64, nil)
	s.svc = service.New(
		identity.NewInMemory(),
		land.NewInMemory(),
		transfer.NewInMemory(),
		service.WithAuditPublisher(s.sink),
	)
}

func requestTime(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}

// register the standing cast: a government official plus two owners.
func (s *ServiceSuite) registerAll() {
	_, err := s.svc.RegisterUser(s.ctx, govCred, "Registrar", "ID-GOV", domain.RoleGovernment)
	s.Require().NoError(err)
	_, err = s.svc.RegisterUser(s.ctx, aliceCred, "Alice", aliceNatID, domain.RoleOwner)
	s.Require().NoError(err)
	_, err = s.svc.RegisterUser(s.ctx, bobCred, "Bob", bobNatID, domain.RoleOwner)
	s.Require().NoError(err)
}

func (s *ServiceSuite) requestLand(id int64, owner domain.Credential, natID domain.NationalID) *land.Record {
	rec, err := s.svc.RequestLandRegistration(s.ctx, owner, id, "Holder", natID, "TN-"+domain.LandID(id).String(), "Plot 4, North District", 1200, "residential")
	s.Require().NoError(err)
	return rec
}

func (s *ServiceSuite) registeredLand(id int64, owner domain.Credential, natID domain.NationalID) *land.Record {
	s.requestLand(id, owner, natID)
	rec, err := s.svc.ApproveLand(s.ctx, govCred, domain.LandID(id))
	s.Require().NoError(err)
	return rec
}

func (s *ServiceSuite) TestRegisterUserOnce() {
	_, err := s.svc.RegisterUser(s.ctx, aliceCred, "Alice", aliceNatID, domain.RoleOwner)
	s.Require().NoError(err)

	_, err = s.svc.RegisterUser(s.ctx, aliceCred, "Alice Again", "ID-999", domain.RoleGovernment)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))

	// the failed attempt must not have touched the original profile
	profile, err := s.svc.LookupByCredential(s.ctx, aliceCred)
	s.Require().NoError(err)
	s.Equal("Alice", profile.Name)
	s.Equal(domain.RoleOwner, profile.Role)
}

func (s *ServiceSuite) TestRegisterUserDuplicateNationalID() {
	_, err := s.svc.RegisterUser(s.ctx, aliceCred, "Alice", aliceNatID, domain.RoleOwner)
	s.Require().NoError(err)

	_, err = s.svc.RegisterUser(s.ctx, bobCred, "Bob", aliceNatID, domain.RoleOwner)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateNationalID))

	_, err = s.svc.LookupByCredential(s.ctx, bobCred)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestLandRoundTrip() {
	s.registerAll()
	s.requestLand(42, aliceCred, aliceNatID)

	rec, err := s.svc.GetLand(s.ctx, 42)
	s.Require().NoError(err)
	s.Equal(domain.LandID(42), rec.ID)
	s.Equal(aliceCred, rec.CurrentOwner)
	s.Equal(land.StatusPending, rec.Status())
	s.Equal(s.clock, rec.RequestedAt)

	ids, err := s.svc.ListLandIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]domain.LandID{42}, ids)
}

func (s *ServiceSuite) TestDuplicateLandID() {
	s.registerAll()
	s.requestLand(7, aliceCred, aliceNatID)

	_, err := s.svc.RequestLandRegistration(s.ctx, bobCred, 7, "Bob", bobNatID, "TN-7B", "Elsewhere", 500, "commercial")
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateLandID))

	// the original record survives untouched
	rec, err := s.svc.GetLand(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal(aliceCred, rec.CurrentOwner)
}

func (s *ServiceSuite) TestInvalidLandID() {
	s.registerAll()
	_, err := s.svc.RequestLandRegistration(s.ctx, aliceCred, 0, "Alice", aliceNatID, "TN-0", "", 1, "residential")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidID))
	_, err = s.svc.RequestLandRegistration(s.ctx, aliceCred, -3, "Alice", aliceNatID, "TN-0", "", 1, "residential")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidID))
}

func (s *ServiceSuite) TestUnregisteredCallerCannotRequestLand() {
	_, err := s.svc.RequestLandRegistration(s.ctx, aliceCred, 1, "Alice", aliceNatID, "TN-1", "", 1, "residential")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestApprovalIsFinal() {
	s.registerAll()
	s.requestLand(7, aliceCred, aliceNatID)

	_, err := s.svc.ApproveLand(s.ctx, govCred, 7)
	s.Require().NoError(err)

	_, err = s.svc.ApproveLand(s.ctx, govCred, 7)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyDecided))
	_, err = s.svc.RejectLand(s.ctx, govCred, 7, "late objection")
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyDecided))

	rec, err := s.svc.GetLand(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal(land.StatusRegistered, rec.Status())
	s.Empty(rec.RejectReason)
}

func (s *ServiceSuite) TestRejectionIsFinal() {
	s.registerAll()
	s.requestLand(8, aliceCred, aliceNatID)

	_, err := s.svc.RejectLand(s.ctx, govCred, 8, "boundary dispute")
	s.Require().NoError(err)

	_, err = s.svc.ApproveLand(s.ctx, govCred, 8)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyDecided))

	rec, err := s.svc.GetLand(s.ctx, 8)
	s.Require().NoError(err)
	s.Equal(land.StatusRejected, rec.Status())
	s.Equal("boundary dispute", rec.RejectReason)
}

func (s *ServiceSuite) TestRejectRequiresReason() {
	s.registerAll()
	s.requestLand(9, aliceCred, aliceNatID)

	_, err := s.svc.RejectLand(s.ctx, govCred, 9, "")
	s.True(dErrors.HasCode(err, dErrors.CodeMissingReason))

	rec, err := s.svc.GetLand(s.ctx, 9)
	s.Require().NoError(err)
	s.Equal(land.StatusPending, rec.Status())
}

func (s *ServiceSuite) TestNonGovernmentCannotDecide() {
	s.registerAll()
	s.requestLand(11, aliceCred, aliceNatID)

	_, err := s.svc.ApproveLand(s.ctx, aliceCred, 11)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.svc.RejectLand(s.ctx, bobCred, 11, "not mine to reject")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	// no state change on a refused command
	rec, err := s.svc.GetLand(s.ctx, 11)
	s.Require().NoError(err)
	s.Equal(land.StatusPending, rec.Status())
}

func (s *ServiceSuite) TestSingleOpenTransferPerParcel() {
	s.registerAll()
	s.registeredLand(20, aliceCred, aliceNatID)

	_, err := s.svc.RequestTransfer(s.ctx, aliceCred, 20, bobNatID, "Bob")
	s.Require().NoError(err)

	_, err = s.svc.RequestTransfer(s.ctx, aliceCred, 20, "ID-300", "Carol")
	s.True(dErrors.HasCode(err, dErrors.CodeTransferAlreadyPending))

	open, err := s.svc.ListOpenTransfers(s.ctx)
	s.Require().NoError(err)
	s.Equal([]domain.LandID{20}, open)
}

func (s *ServiceSuite) TestTransferRequiresRegisteredParcel() {
	s.registerAll()
	s.requestLand(21, aliceCred, aliceNatID)

	_, err := s.svc.RequestTransfer(s.ctx, aliceCred, 21, bobNatID, "Bob")
	s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))

	_, err = s.svc.RejectLand(s.ctx, govCred, 21, "incomplete survey")
	s.Require().NoError(err)
	_, err = s.svc.RequestTransfer(s.ctx, aliceCred, 21, bobNatID, "Bob")
	s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
}

func (s *ServiceSuite) TestTransferRequiresCurrentOwner() {
	s.registerAll()
	s.registeredLand(22, aliceCred, aliceNatID)

	_, err := s.svc.RequestTransfer(s.ctx, bobCred, 22, bobNatID, "Bob")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestTransferToSelfRejected() {
	s.registerAll()
	s.registeredLand(23, aliceCred, aliceNatID)

	_, err := s.svc.RequestTransfer(s.ctx, aliceCred, 23, aliceNatID, "Alice")
	s.True(dErrors.HasCode(err, dErrors.CodeSameOwner))
}

func (s *ServiceSuite) TestApproveTransferMovesOwnership() {
	s.registerAll()
	s.registeredLand(30, aliceCred, aliceNatID)
	_, err := s.svc.RequestTransfer(s.ctx, aliceCred, 30, bobNatID, "Bob")
	s.Require().NoError(err)

	req, err := s.svc.ApproveTransfer(s.ctx, govCred, 30)
	s.Require().NoError(err)
	s.Equal(transfer.DecisionApproved, req.Decision)

	// the decision and the owner change commit together
	rec, err := s.svc.GetLand(s.ctx, 30)
	s.Require().NoError(err)
	s.Equal(bobCred, rec.CurrentOwner)
	s.Equal(land.StatusRegistered, rec.Status())

	open, err := s.svc.ListOpenTransfers(s.ctx)
	s.Require().NoError(err)
	s.Empty(open)

	// bob, now the owner, can open the next transfer
	_, err = s.svc.RequestTransfer(s.ctx, bobCred, 30, aliceNatID, "Alice")
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestRejectTransferKeepsOwnership() {
	s.registerAll()
	s.registeredLand(31, aliceCred, aliceNatID)
	_, err := s.svc.RequestTransfer(s.ctx, aliceCred, 31, bobNatID, "Bob")
	s.Require().NoError(err)

	req, err := s.svc.RejectTransfer(s.ctx, govCred, 31)
	s.Require().NoError(err)
	s.Equal(transfer.DecisionRejected, req.Decision)

	rec, err := s.svc.GetLand(s.ctx, 31)
	s.Require().NoError(err)
	s.Equal(aliceCred, rec.CurrentOwner)

	// the slot is free again
	_, err = s.svc.RequestTransfer(s.ctx, aliceCred, 31, bobNatID, "Bob")
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestTransferHistoryAccumulates() {
	s.registerAll()
	s.registeredLand(32, aliceCred, aliceNatID)

	_, err := s.svc.RequestTransfer(s.ctx, aliceCred, 32, bobNatID, "Bob")
	s.Require().NoError(err)
	_, err = s.svc.RejectTransfer(s.ctx, govCred, 32)
	s.Require().NoError(err)

	_, err = s.svc.RequestTransfer(s.ctx, aliceCred, 32, bobNatID, "Bob")
	s.Require().NoError(err)
	_, err = s.svc.ApproveTransfer(s.ctx, govCred, 32)
	s.Require().NoError(err)

	history, err := s.svc.ListTransferHistory(s.ctx, 32)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(transfer.DecisionRejected, history[0].Decision)
	s.Equal(transfer.DecisionApproved, history[1].Decision)

	// an open request does not count as history
	_, err = s.svc.RequestTransfer(s.ctx, bobCred, 32, aliceNatID, "Alice")
	s.Require().NoError(err)
	history, err = s.svc.ListTransferHistory(s.ctx, 32)
	s.Require().NoError(err)
	s.Len(history, 2)

	_, err = s.svc.ListTransferHistory(s.ctx, 404)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDeferredTargetResolution() {
	s.registerAll()
	s.registeredLand(40, aliceCred, aliceNatID)

	// the proposed owner is referenced by a national id nobody has
	// registered yet
	_, err := s.svc.RequestTransfer(s.ctx, aliceCred, 40, "ID-555", "Carol")
	s.Require().NoError(err)

	_, err = s.svc.ApproveTransfer(s.ctx, govCred, 40)
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownNationalID))

	// the request stays open; registration of the target unblocks it
	carol := domain.Credential("0xcarol")
	_, err = s.svc.RegisterUser(s.ctx, carol, "Carol", "ID-555", domain.RoleOwner)
	s.Require().NoError(err)

	req, err := s.svc.ApproveTransfer(s.ctx, govCred, 40)
	s.Require().NoError(err)
	s.Equal(transfer.DecisionApproved, req.Decision)

	rec, err := s.svc.GetLand(s.ctx, 40)
	s.Require().NoError(err)
	s.Equal(carol, rec.CurrentOwner)
}

func (s *ServiceSuite) TestApproveTransferWithoutOpenRequest() {
	s.registerAll()
	s.registeredLand(41, aliceCred, aliceNatID)

	_, err := s.svc.ApproveTransfer(s.ctx, govCred, 41)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestListingsAscendAndFilter() {
	s.registerAll()
	s.requestLand(9, aliceCred, aliceNatID)
	s.requestLand(3, aliceCred, aliceNatID)
	s.requestLand(5, bobCred, bobNatID)

	_, err := s.svc.ApproveLand(s.ctx, govCred, 5)
	s.Require().NoError(err)
	_, err = s.svc.RejectLand(s.ctx, govCred, 9, "duplicate claim")
	s.Require().NoError(err)

	ids, err := s.svc.ListLandIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]domain.LandID{3, 5, 9}, ids)

	pending, err := s.svc.ListByStatus(s.ctx, land.StatusPending)
	s.Require().NoError(err)
	s.Len(pending, 1)
	s.Equal(domain.LandID(3), pending[0].ID)

	registered, err := s.svc.ListByStatus(s.ctx, land.StatusRegistered)
	s.Require().NoError(err)
	s.Len(registered, 1)
	s.Equal(domain.LandID(5), registered[0].ID)

	mine, err := s.svc.ListByOwner(s.ctx, aliceCred)
	s.Require().NoError(err)
	s.Len(mine, 2)
	s.Equal(domain.LandID(3), mine[0].ID)
	s.Equal(domain.LandID(9), mine[1].ID)
}

func (s *ServiceSuite) TestLookupByNationalID() {
	s.registerAll()

	profile, err := s.svc.LookupByNationalID(s.ctx, bobNatID)
	s.Require().NoError(err)
	s.Equal(bobCred, profile.Credential)

	_, err = s.svc.LookupByNationalID(s.ctx, "ID-404")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// gatedCache is a LandCache whose Set blocks until released, so tests can
// interleave a read-through repopulation with a concurrent mutation.
type gatedCache struct {
	mu      sync.Mutex
	entries map[domain.LandID]*land.Record

	setEntered chan struct{}
	setRelease chan struct{}
}

func newGatedCache() *gatedCache {
	return &gatedCache{
		entries:    make(map[domain.LandID]*land.Record),
		setEntered: make(chan struct{}, 8),
		setRelease: make(chan struct{}),
	}
}

func (c *gatedCache) Get(_ context.Context, id domain.LandID) (*land.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.entries[id]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (c *gatedCache) Set(_ context.Context, record *land.Record) error {
	c.setEntered <- struct{}{}
	<-c.setRelease
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *record
	c.entries[record.ID] = &copied
	return nil
}

func (c *gatedCache) Invalidate(_ context.Context, id domain.LandID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

// A read that loaded a record before a transfer commits must not land that
// record back in the cache behind the commit: the repopulation happens under
// the read lock, so the writer's invalidation is always ordered after it.
func (s *ServiceSuite) TestConcurrentReadCannotResurrectStaleCache() {
	cache := newGatedCache()
	s.svc = service.New(
		identity.NewInMemory(),
		land.NewInMemory(),
		transfer.NewInMemory(),
		service.WithCache(cache),
	)
	s.registerAll()
	s.registeredLand(9, aliceCred, aliceNatID)
	_, err := s.svc.RequestTransfer(s.ctx, aliceCred, 9, bobNatID, "Bob")
	s.Require().NoError(err)

	// reader misses the cache, loads alice's record and stalls inside Set
	readerDone := make(chan error, 1)
	go func() {
		_, err := s.svc.GetLand(s.ctx, 9)
		readerDone <- err
	}()
	<-cache.setEntered

	// the transfer decision commits concurrently with the stalled reader
	approveDone := make(chan error, 1)
	go func() {
		_, err := s.svc.ApproveTransfer(s.ctx, govCred, 9)
		approveDone <- err
	}()

	close(cache.setRelease)
	s.Require().NoError(<-readerDone)
	s.Require().NoError(<-approveDone)

	rec, err := s.svc.GetLand(s.ctx, 9)
	s.Require().NoError(err)
	s.Equal(bobCred, rec.CurrentOwner)

	// the cache hit path must agree with the committed state too
	rec, err = s.svc.GetLand(s.ctx, 9)
	s.Require().NoError(err)
	s.Equal(bobCred, rec.CurrentOwner)
}

func (s *ServiceSuite) TestAuditTrail() {
	s.registerAll()
	s.requestLand(50, aliceCred, aliceNatID)
	_, err := s.svc.ApproveLand(s.ctx, govCred, 50)
	s.Require().NoError(err)

	var actions []audit.Action
	for len(s.sink.Inbox()) > 0 {
		actions = append(actions, (<-s.sink.Inbox()).Action)
	}
	s.Equal([]audit.Action{
		audit.ActionUserRegistered,
		audit.ActionUserRegistered,
		audit.ActionUserRegistered,
		audit.ActionLandRequested,
		audit.ActionLandApproved,
	}, actions)
}
