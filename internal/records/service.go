package records

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/psiclin/psiclin/internal/model"
	"github.com/psiclin/psiclin/internal/store"
)

// Default bounds. Storage calls that outlive StorageTimeout surface as
// StorageUnavailable; lock waits that outlive LockTimeout surface as
// ConflictError.
const (
	defaultStorageTimeout = 5 * time.Second
	defaultLockTimeout    = 3 * time.Second
)

// Service is the query facade over the record store. All application reads
// and writes go through it; session writes additionally flow through the
// per-record lock and the audit recorder.
type Service struct {
	// StorageTimeout bounds each storage call. Exposed for tests.
	StorageTimeout time.Duration
	// LockTimeout bounds the wait for a contended record lock.
	LockTimeout time.Duration

	store  *store.Store
	locks  *lockTable
	clock  *Clock
	logger *slog.Logger
}

// New creates a Service over an open store. The audit clock resumes from
// the highest seq already recorded so seq stays monotonic across restarts.
func New(st *store.Store) (*Service, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultStorageTimeout)
	defer cancel()

	maxSeq, err := st.MaxHistorySeq(ctx)
	if err != nil {
		return nil, err
	}

	return &Service{
		StorageTimeout: defaultStorageTimeout,
		LockTimeout:    defaultLockTimeout,
		store:          st,
		locks:          newLockTable(),
		clock:          NewClockAt(maxSeq),
		logger:         slog.Default(),
	}, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.StorageTimeout)
}

// --- Clinics ---

func (s *Service) CreateClinic(ctx context.Context, c model.Clinic) (model.Clinic, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.CreateClinic(ctx, c)
}

func (s *Service) GetClinic(ctx context.Context, id string) (model.Clinic, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetClinic(ctx, id)
}

func (s *Service) ListClinics(ctx context.Context) ([]model.Clinic, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListClinics(ctx)
}

func (s *Service) UpdateClinic(ctx context.Context, id string, u model.ClinicUpdate) (model.Clinic, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.UpdateClinic(ctx, id, u)
}

func (s *Service) DeleteClinic(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.DeleteClinic(ctx, id)
}

// --- Patients ---

func (s *Service) CreatePatient(ctx context.Context, p model.Patient) (model.Patient, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.CreatePatient(ctx, p)
}

func (s *Service) GetPatientByID(ctx context.Context, id string) (model.Patient, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetPatient(ctx, id)
}

// GetPatientsByClinic returns the clinic's patients ordered by full name
// under Portuguese collation, ties broken by id. Patients without a
// recorded name collate as empty and therefore sort first; the ordering is
// total either way.
func (s *Service) GetPatientsByClinic(ctx context.Context, clinicID string) ([]model.Patient, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	patients, err := s.store.ListPatients(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	c := collate.New(language.Portuguese)
	sort.SliceStable(patients, func(i, j int) bool {
		ni, nj := patientName(patients[i]), patientName(patients[j])
		if r := c.CompareString(ni, nj); r != 0 {
			return r < 0
		}
		return patients[i].ID < patients[j].ID
	})
	return patients, nil
}

func patientName(p model.Patient) string {
	if p.FullName == nil {
		return ""
	}
	return *p.FullName
}

func (s *Service) UpdatePatient(ctx context.Context, id string, u model.PatientUpdate) (model.Patient, error) {
	lockCtx, cancelLock := context.WithTimeout(ctx, s.LockTimeout)
	defer cancelLock()
	release, err := s.locks.acquire(lockCtx, "patient", id)
	if err != nil {
		return model.Patient{}, err
	}
	defer release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.UpdatePatient(ctx, id, u)
}

func (s *Service) DeletePatient(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.DeletePatient(ctx, id)
}

// --- Sessions ---

// CreateSession stores a new session and exactly one "created" audit row in
// the same transaction. An empty actor is recorded as the system sentinel.
// Status defaults to agendada when unset.
func (s *Service) CreateSession(ctx context.Context, actor string, sess model.Session) (model.Session, error) {
	if sess.Status == "" {
		sess.Status = model.StatusAgendada
	}
	if sess.CreatedBy == "" {
		sess.CreatedBy = resolveActor(actor)
	}
	sess.ID = model.NewID()

	row := historyRow(sess, actor, model.ChangeCreated, nil, s.clock.Next())

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	created, err := s.store.CreateSession(ctx, sess, []model.SessionHistory{row})
	if err != nil {
		return model.Session{}, err
	}
	s.logger.Debug("session created", "session_id", created.ID, "clinic_id", created.ClinicID)
	return created, nil
}

func (s *Service) GetSessionByID(ctx context.Context, id string) (model.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetSession(ctx, id)
}

func (s *Service) GetSessionsByClinic(ctx context.Context, clinicID string) ([]model.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListSessionsByClinic(ctx, clinicID)
}

func (s *Service) GetSessionsByPatient(ctx context.Context, patientID string) ([]model.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListSessionsByPatient(ctx, patientID)
}

// UpdateSession applies a partial update under the session's mutation lock
// and appends one "updated" audit row per field whose value actually
// changed. An update that changes nothing writes nothing and returns the
// stored session as-is.
func (s *Service) UpdateSession(ctx context.Context, actor, id string, u model.SessionUpdate) (model.Session, error) {
	lockCtx, cancelLock := context.WithTimeout(ctx, s.LockTimeout)
	defer cancelLock()
	release, err := s.locks.acquire(lockCtx, "session", id)
	if err != nil {
		return model.Session{}, err
	}
	defer release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	prior, err := s.store.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, err
	}

	// Validate the merge up front so a rejected update produces no rows.
	if _, err := model.MergeSession(prior, u); err != nil {
		return model.Session{}, err
	}

	changes := diffSession(prior, u)
	if len(changes) == 0 {
		return prior, nil
	}

	rows := make([]model.SessionHistory, 0, len(changes))
	for i := range changes {
		rows = append(rows, historyRow(prior, actor, model.ChangeUpdated, &changes[i], s.clock.Next()))
	}

	updated, err := s.store.UpdateSession(ctx, id, u, rows)
	if err != nil {
		return model.Session{}, err
	}
	s.logger.Debug("session updated", "session_id", id, "fields", len(changes))
	return updated, nil
}

// DeleteSession removes a session and its attachments under the mutation
// lock, appending one "deleted" audit row. The session's history survives.
func (s *Service) DeleteSession(ctx context.Context, actor, id string) error {
	lockCtx, cancelLock := context.WithTimeout(ctx, s.LockTimeout)
	defer cancelLock()
	release, err := s.locks.acquire(lockCtx, "session", id)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return err
	}

	row := historyRow(sess, actor, model.ChangeDeleted, nil, s.clock.Next())
	if err := s.store.DeleteSession(ctx, id, []model.SessionHistory{row}); err != nil {
		return err
	}
	s.logger.Debug("session deleted", "session_id", id)
	return nil
}

// --- Attachments ---

func (s *Service) AddAttachment(ctx context.Context, a model.SessionAttachment) (model.SessionAttachment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.CreateAttachment(ctx, a)
}

func (s *Service) GetAttachmentsBySession(ctx context.Context, sessionID string) ([]model.SessionAttachment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListAttachmentsBySession(ctx, sessionID)
}

func (s *Service) DeleteAttachment(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.DeleteAttachment(ctx, id)
}

// --- History ---

func (s *Service) GetHistoryBySession(ctx context.Context, sessionID string) ([]model.SessionHistory, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListHistoryBySession(ctx, sessionID)
}

// RecordHistory appends an audit row directly, for flows that log outside
// the standard mutation path (e.g. a creation driven by a different entry
// point). Missing seq, timestamp and actor are filled in here.
func (s *Service) RecordHistory(ctx context.Context, h model.SessionHistory) (model.SessionHistory, error) {
	if h.Seq == 0 {
		h.Seq = s.clock.Next()
	}
	if h.ChangedAt.IsZero() {
		h.ChangedAt = time.Now().UTC()
	}
	h.ChangedBy = resolveActor(h.ChangedBy)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.AppendHistory(ctx, h)
}

// --- Backup ---

func (s *Service) ExportClinic(ctx context.Context, clinicID string) (model.ClinicArchive, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ExportClinic(ctx, clinicID)
}

func (s *Service) ImportClinic(ctx context.Context, archive model.ClinicArchive) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.ImportClinic(ctx, archive); err != nil {
		return err
	}
	// Imported rows may carry seq values ahead of this process's clock;
	// advance past them so future rows stay monotonic.
	for _, h := range archive.History {
		s.clock.AdvanceTo(h.Seq)
	}
	return nil
}
