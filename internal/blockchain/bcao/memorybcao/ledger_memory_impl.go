package memorybcao

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/permission"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
	"github.com/tjfoc/gmsm/sm3"
)

// LedgerMemoryImpl is an in-process authority implementing `bcao.ILedgerGateway`. It verifies signatures, enforces
// the permission rules of the on-chain contract and settles operations either immediately (in the background) or on
// demand when created with `WithManualConfirmation`.
type LedgerMemoryImpl struct {
	mu             sync.Mutex
	counterparties map[string]record.Counterparty
	records        map[string]*holderRecord // Record address -> record
	recordByOwner  map[string]string        // Holder address -> record address
	queue          map[string]*queuedOperation
	queueOrder     []string
	failNext       map[bcao.OperationKind][]string
	manual         bool
	timeout        time.Duration
	txSeq          uint64
}

type holderRecord struct {
	address     string
	owner       string
	profile     record.Profile
	results     []record.Result
	permissions []permission.Permission // Insertion ordered; at most one entry per key
}

type queuedOperation struct {
	signedOp *bcao.SignedOperation
	pending  *bcao.PendingOperation
	timer    *time.Timer
}

// Option configures a `LedgerMemoryImpl`.
type Option func(*LedgerMemoryImpl)

// WithManualConfirmation keeps submitted operations pending until `Confirm`, `ConfirmAll` or `Reject` is called.
func WithManualConfirmation() Option {
	return func(l *LedgerMemoryImpl) {
		l.manual = true
	}
}

// WithConfirmationTimeout fails operations that are still pending after d.
func WithConfirmationTimeout(d time.Duration) Option {
	return func(l *LedgerMemoryImpl) {
		l.timeout = d
	}
}

// NewLedgerMemoryImpl creates an empty in-process ledger.
func NewLedgerMemoryImpl(opts ...Option) *LedgerMemoryImpl {
	l := &LedgerMemoryImpl{
		counterparties: make(map[string]record.Counterparty),
		records:        make(map[string]*holderRecord),
		recordByOwner:  make(map[string]string),
		queue:          make(map[string]*queuedOperation),
		failNext:       make(map[bcao.OperationKind][]string),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Submit implements `bcao.ILedgerGateway`.
func (l *LedgerMemoryImpl) Submit(ctx context.Context, signedOp *bcao.SignedOperation) (*bcao.PendingOperation, error) {
	if signedOp == nil {
		return nil, fmt.Errorf("signed operation cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pending := bcao.NewPendingOperation(signedOp.Operation.ID, signedOp.Operation.Kind)
	queued := &queuedOperation{signedOp: signedOp, pending: pending}

	l.mu.Lock()
	l.queue[pending.ID] = queued
	l.queueOrder = append(l.queueOrder, pending.ID)
	if l.timeout > 0 {
		id := pending.ID
		queued.timer = time.AfterFunc(l.timeout, func() {
			l.Reject(id, "confirmation timed out")
		})
	}
	manual := l.manual
	l.mu.Unlock()

	log.WithFields(log.Fields{"operation": pending.ID, "kind": pending.Kind}).Debug("operation submitted to the in-memory ledger")

	if !manual {
		go l.Confirm(pending.ID)
	}

	return pending, nil
}

// FailNext makes the next settled operation of the given kind fail with reason, without applying it.
func (l *LedgerMemoryImpl) FailNext(kind bcao.OperationKind, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failNext[kind] = append(l.failNext[kind], reason)
}

// PendingIDs returns the IDs of operations that have not been settled, oldest first.
func (l *LedgerMemoryImpl) PendingIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, len(l.queueOrder))
	copy(ids, l.queueOrder)
	return ids
}

// Confirm settles a queued operation: it is applied and confirmed, or failed if the authority rejects it.
// Unknown or already settled IDs are ignored.
func (l *LedgerMemoryImpl) Confirm(id string) {
	l.mu.Lock()
	queued, ok := l.dequeue(id)
	if !ok {
		l.mu.Unlock()
		return
	}

	var failure string
	if reasons := l.failNext[queued.pending.Kind]; len(reasons) > 0 {
		failure = reasons[0]
		l.failNext[queued.pending.Kind] = reasons[1:]
	} else if err := l.apply(queued.signedOp); err != nil {
		failure = err.Error()
	}

	l.txSeq++
	txSeq := l.txSeq
	l.mu.Unlock()

	if failure != "" {
		log.WithFields(log.Fields{"operation": id, "reason": failure}).Debug("in-memory ledger rejected operation")
		queued.pending.Fail(failure)
		return
	}

	queued.pending.Confirm(&bcao.TransactionCreationInfo{
		TransactionID: fmt.Sprintf("memtx-%d", txSeq),
	})
}

// ConfirmAll settles every queued operation in submission order.
func (l *LedgerMemoryImpl) ConfirmAll() {
	for _, id := range l.PendingIDs() {
		l.Confirm(id)
	}
}

// Reject fails a queued operation without applying it.
func (l *LedgerMemoryImpl) Reject(id string, reason string) {
	l.mu.Lock()
	queued, ok := l.dequeue(id)
	l.mu.Unlock()

	if ok {
		queued.pending.Fail(reason)
	}
}

// The caller must hold l.mu.
func (l *LedgerMemoryImpl) dequeue(id string) (*queuedOperation, bool) {
	queued, ok := l.queue[id]
	if !ok {
		return nil, false
	}

	delete(l.queue, id)
	for i, queuedID := range l.queueOrder {
		if queuedID == id {
			l.queueOrder = append(l.queueOrder[:i], l.queueOrder[i+1:]...)
			break
		}
	}

	if queued.timer != nil {
		queued.timer.Stop()
	}

	return queued, true
}

// RecordAddressOf derives the record address the ledger assigns to a holder.
func RecordAddressOf(holder string) string {
	digest := sm3.Sm3Sum([]byte("record:" + strings.ToLower(holder)))
	return "0x" + hex.EncodeToString(digest[len(digest)-20:])
}

// The caller must hold l.mu.
func (l *LedgerMemoryImpl) apply(signedOp *bcao.SignedOperation) error {
	op, err := bcao.VerifySignedOperation(signedOp)
	if err != nil {
		return err
	}

	switch op.Kind {
	case bcao.OpRegisterCounterparty:
		return l.applyRegisterCounterparty(op)
	case bcao.OpRegisterHolder:
		return l.applyRegisterHolder(op)
	case bcao.OpEnroll:
		return l.applyEnroll(op)
	case bcao.OpEvaluate:
		return l.applyEvaluate(op)
	case bcao.OpRequestPermission:
		return l.applyRequestPermission(op)
	case bcao.OpGrantPermission:
		return l.applyGrantPermission(op)
	case bcao.OpRevokePermission:
		return l.applyRevokePermission(op)
	default:
		return errors.Errorf("unsupported operation kind '%v'", op.Kind)
	}
}

func (l *LedgerMemoryImpl) applyRegisterCounterparty(op *bcao.Operation) error {
	var args bcao.RegisterCounterpartyArgs
	if err := bcao.DecodeArgs(op.Args, &args); err != nil {
		return err
	}

	if _, exists := l.counterparties[op.Signer]; exists {
		return errors.Errorf("counterparty '%v' is already registered", op.Signer)
	}
	if strings.TrimSpace(args.Name) == "" {
		return errors.New("counterparty name cannot be empty")
	}

	l.counterparties[op.Signer] = record.Counterparty{
		Address:   op.Signer,
		Name:      args.Name,
		Country:   args.Country,
		ShortName: args.ShortName,
	}

	return nil
}

func (l *LedgerMemoryImpl) applyRegisterHolder(op *bcao.Operation) error {
	if _, isCounterparty := l.counterparties[op.Signer]; !isCounterparty {
		return errorcode.ErrorForbidden
	}

	var args bcao.RegisterHolderArgs
	if err := bcao.DecodeArgs(op.Args, &args); err != nil {
		return err
	}

	if strings.TrimSpace(args.Holder) == "" {
		return errors.New("holder address cannot be empty")
	}
	if _, exists := l.recordByOwner[args.Holder]; exists {
		return errors.Errorf("holder '%v' already has a record", args.Holder)
	}

	var birthDate time.Time
	if args.BirthDate != "" {
		parsed, err := time.Parse(time.RFC3339, args.BirthDate)
		if err != nil {
			return errors.Wrap(err, "invalid birth date")
		}
		birthDate = parsed
	}

	recordAddress := RecordAddressOf(args.Holder)
	l.records[recordAddress] = &holderRecord{
		address: recordAddress,
		owner:   args.Holder,
		profile: record.Profile{
			Name:       args.Name,
			Surname:    args.Surname,
			BirthDate:  birthDate,
			BirthPlace: args.BirthPlace,
			Country:    args.Country,
		},
	}
	l.recordByOwner[args.Holder] = recordAddress

	return nil
}

func (l *LedgerMemoryImpl) applyEnroll(op *bcao.Operation) error {
	rec, err := l.writableRecord(op)
	if err != nil {
		return err
	}

	var args bcao.EnrollArgs
	if err := bcao.DecodeArgs(op.Args, &args); err != nil {
		return err
	}

	if strings.TrimSpace(args.CourseCode) == "" {
		return errors.New("course code cannot be empty")
	}
	if args.Credits < 0 {
		return errors.New("credits cannot be negative")
	}
	if _, existing := findResult(rec, op.Signer, args.CourseCode); existing != nil {
		return errors.Errorf("course '%v' is already enrolled", args.CourseCode)
	}

	rec.results = append(rec.results, record.Result{
		CourseCode:   args.CourseCode,
		CourseName:   args.CourseName,
		Counterparty: op.Signer,
		ProgramName:  args.ProgramName,
		Credits:      args.Credits,
	})

	return nil
}

func (l *LedgerMemoryImpl) applyEvaluate(op *bcao.Operation) error {
	rec, err := l.writableRecord(op)
	if err != nil {
		return err
	}

	var args bcao.EvaluateArgs
	if err := bcao.DecodeArgs(op.Args, &args); err != nil {
		return err
	}

	i, existing := findResult(rec, op.Signer, args.CourseCode)
	if existing == nil {
		return errorcode.ErrorNotFound
	}
	if existing.IsEvaluated() {
		return errors.Errorf("course '%v' is already evaluated", args.CourseCode)
	}

	date, err := time.Parse(time.RFC3339, args.Date)
	if err != nil {
		return errors.Wrap(err, "invalid evaluation date")
	}

	grade := args.Grade
	rec.results[i].Grade = &grade
	rec.results[i].Date = &date
	if args.CertificateCID != "" {
		cid := args.CertificateCID
		rec.results[i].CertificateCID = &cid
	}

	return nil
}

func (l *LedgerMemoryImpl) applyRequestPermission(op *bcao.Operation) error {
	if _, isCounterparty := l.counterparties[op.Signer]; !isCounterparty {
		return errorcode.ErrorForbidden
	}

	rec, ok := l.records[op.Target]
	if !ok {
		return errorcode.ErrorNotFound
	}

	capability, err := decodeCapability(op)
	if err != nil {
		return err
	}

	key := permission.Key{Counterparty: op.Signer, Capability: capability}
	if _, live := findPermission(rec, key); live != nil {
		return errors.Errorf("permission '%v' is already %v", key, live.Phase)
	}

	rec.permissions = append(rec.permissions, permission.NewRequest(op.Signer, capability))
	return nil
}

func (l *LedgerMemoryImpl) applyGrantPermission(op *bcao.Operation) error {
	rec, err := l.ownedRecord(op)
	if err != nil {
		return err
	}

	var args bcao.PermissionArgs
	if err := bcao.DecodeArgs(op.Args, &args); err != nil {
		return err
	}
	capability, err := decodeCapability(op)
	if err != nil {
		return err
	}

	key := permission.Key{Counterparty: args.Counterparty, Capability: capability}
	i, live := findPermission(rec, key)
	if live == nil || live.Phase != permission.Requested {
		return errors.Errorf("permission '%v' has no pending request", key)
	}

	rec.permissions[i].Phase = permission.Granted
	return nil
}

func (l *LedgerMemoryImpl) applyRevokePermission(op *bcao.Operation) error {
	rec, err := l.ownedRecord(op)
	if err != nil {
		return err
	}

	var args bcao.PermissionArgs
	if err := bcao.DecodeArgs(op.Args, &args); err != nil {
		return err
	}
	capability, err := decodeCapability(op)
	if err != nil {
		return err
	}

	key := permission.Key{Counterparty: args.Counterparty, Capability: capability}
	i, live := findPermission(rec, key)
	if live == nil {
		return errors.Errorf("permission '%v' does not exist", key)
	}

	rec.permissions = append(rec.permissions[:i], rec.permissions[i+1:]...)
	return nil
}

// Returns the target record if the signer is a counterparty holding a granted Write permission on it.
func (l *LedgerMemoryImpl) writableRecord(op *bcao.Operation) (*holderRecord, error) {
	rec, ok := l.records[op.Target]
	if !ok {
		return nil, errorcode.ErrorNotFound
	}

	_, live := findPermission(rec, permission.Key{Counterparty: op.Signer, Capability: permission.Write})
	if live == nil || live.Phase != permission.Granted {
		return nil, errorcode.ErrorForbidden
	}

	return rec, nil
}

// Returns the target record if the signer owns it.
func (l *LedgerMemoryImpl) ownedRecord(op *bcao.Operation) (*holderRecord, error) {
	rec, ok := l.records[op.Target]
	if !ok {
		return nil, errorcode.ErrorNotFound
	}
	if rec.owner != op.Signer {
		return nil, errorcode.ErrorForbidden
	}

	return rec, nil
}

func decodeCapability(op *bcao.Operation) (permission.Capability, error) {
	var args bcao.PermissionArgs
	if err := bcao.DecodeArgs(op.Args, &args); err != nil {
		return 0, err
	}

	return permission.ParseCapability(args.Capability)
}

func findPermission(rec *holderRecord, key permission.Key) (int, *permission.Permission) {
	for i := range rec.permissions {
		if rec.permissions[i].Key() == key {
			return i, &rec.permissions[i]
		}
	}

	return -1, nil
}

func findResult(rec *holderRecord, counterparty string, courseCode string) (int, *record.Result) {
	for i := range rec.results {
		if rec.results[i].Counterparty == counterparty && rec.results[i].CourseCode == courseCode {
			return i, &rec.results[i]
		}
	}

	return -1, nil
}
