package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/psiclin/psiclin/internal/model"
	"github.com/psiclin/psiclin/internal/records"
	"github.com/psiclin/psiclin/internal/store"
)

// Harness executes a scenario against a fresh records service.
type Harness struct {
	svc    *records.Service
	refs   map[string]string // scenario ref -> generated record id
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database. Record ids are
// generated as usual but never leak into the trace; steps address records
// through refs, so the same scenario always produces the same trace.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	svc, err := records.New(st)
	if err != nil {
		return nil, fmt.Errorf("failed to create records service: %w", err)
	}

	h := &Harness{
		svc:    svc,
		refs:   make(map[string]string),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Setup {
		if err := h.executeStep(ctx, step, result); err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
		}
		if last := result.Trace[len(result.Trace)-1]; last.Error != "" {
			return nil, fmt.Errorf("setup step %d (%s) failed: %s", i, step.Op, last.Error)
		}
	}

	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d (%s): %w", i, step.Op, err)
		}
		h.checkExpect(i, step, result)
	}

	actx := &AssertionContext{
		Ctx:  ctx,
		Svc:  svc,
		Refs: h.refs,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep dispatches one operation. Domain errors (validation,
// not-found, conflict) land in the trace; anything else aborts the run.
func (h *Harness) executeStep(ctx context.Context, step Step, result *Result) error {
	result.AddOpTrace(step.Op, step.Ref, step.Args)

	var (
		errCode string
		changes int
		err     error
	)

	switch step.Op {
	case "clinic.create":
		errCode, err = h.opClinicCreate(ctx, step)
	case "clinic.delete":
		errCode, err = h.opClinicDelete(ctx, step)
	case "patient.add":
		errCode, err = h.opPatientAdd(ctx, step)
	case "patient.update":
		errCode, err = h.opPatientUpdate(ctx, step)
	case "session.add":
		errCode, changes, err = h.opSessionAdd(ctx, step)
	case "session.update":
		errCode, changes, err = h.opSessionUpdate(ctx, step)
	case "session.delete":
		errCode, changes, err = h.opSessionDelete(ctx, step)
	case "attachment.add":
		errCode, err = h.opAttachmentAdd(ctx, step)
	case "attachment.delete":
		errCode, err = h.opAttachmentDelete(ctx, step)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if err != nil {
		return err
	}

	result.AddResultTrace(step.Op, errCode, changes)
	h.logger.Debug("step executed", "op", step.Op, "ref", step.Ref, "error", errCode)
	return nil
}

// checkExpect validates a flow step's outcome against its expect clause.
func (h *Harness) checkExpect(index int, step Step, result *Result) {
	last := result.Trace[len(result.Trace)-1]

	wantErr := ""
	if step.Expect != nil {
		wantErr = step.Expect.Error
	}
	if last.Error != wantErr {
		if wantErr == "" {
			result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error %s", index, step.Op, last.Error))
		} else {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected error %s, got %q", index, step.Op, wantErr, last.Error))
		}
		return
	}
	if step.Expect == nil {
		return
	}

	if step.Expect.Changes != nil && *step.Expect.Changes != last.Changes {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected %d audit rows, got %d",
			index, step.Op, *step.Expect.Changes, last.Changes))
	}

	if len(step.Expect.Fields) > 0 {
		ref := step.Ref
		if ref == "" {
			if raw, ok := step.Args["session"].(string); ok {
				ref = strings.TrimPrefix(raw, "$")
			}
		}
		id, ok := h.refs[ref]
		if !ok {
			result.AddError(fmt.Sprintf("flow[%d] %s: no ref to check fields against", index, step.Op))
			return
		}
		sess, err := h.svc.GetSessionByID(context.Background(), id)
		if err != nil {
			result.AddError(fmt.Sprintf("flow[%d] %s: fetch for field check: %v", index, step.Op, err))
			return
		}
		for name, want := range step.Expect.Fields {
			got := sessionField(sess, name)
			if !valuesEqual(want, got) {
				result.AddError(fmt.Sprintf("flow[%d] %s: field %s = %v, expected %v",
					index, step.Op, name, got, want))
			}
		}
	}
}

// --- operations ---

func (h *Harness) opClinicCreate(ctx context.Context, step Step) (string, error) {
	name, _ := h.stringArg(step.Args, "name")
	created, err := h.svc.CreateClinic(ctx, model.Clinic{Name: name})
	if err != nil {
		return domainCode(err)
	}
	h.bindRef(step.Ref, created.ID)
	return "", nil
}

func (h *Harness) opClinicDelete(ctx context.Context, step Step) (string, error) {
	id, _ := h.stringArg(step.Args, "clinic")
	if err := h.svc.DeleteClinic(ctx, id); err != nil {
		return domainCode(err)
	}
	return "", nil
}

func (h *Harness) opPatientAdd(ctx context.Context, step Step) (string, error) {
	p := model.Patient{}
	p.ClinicID, _ = h.stringArg(step.Args, "clinic")
	p.PublicID, _ = h.stringArg(step.Args, "public_id")
	if name, ok := h.stringArg(step.Args, "full_name"); ok {
		p.FullName = &name
	}
	p.Gender, _ = h.stringArg(step.Args, "gender")
	p.BirthDate, _ = h.stringArg(step.Args, "birth_date")
	p.Notes, _ = h.stringArg(step.Args, "notes")

	created, err := h.svc.CreatePatient(ctx, p)
	if err != nil {
		return domainCode(err)
	}
	h.bindRef(step.Ref, created.ID)
	return "", nil
}

func (h *Harness) opPatientUpdate(ctx context.Context, step Step) (string, error) {
	id, _ := h.stringArg(step.Args, "patient")

	var u model.PatientUpdate
	if v, ok := h.stringArg(step.Args, "full_name"); ok {
		u.FullName = &v
	}
	if v, ok := h.stringArg(step.Args, "gender"); ok {
		u.Gender = &v
	}
	if v, ok := h.stringArg(step.Args, "birth_date"); ok {
		u.BirthDate = &v
	}
	if v, ok := h.stringArg(step.Args, "notes"); ok {
		u.Notes = &v
	}

	if _, err := h.svc.UpdatePatient(ctx, id, u); err != nil {
		return domainCode(err)
	}
	return "", nil
}

func (h *Harness) opSessionAdd(ctx context.Context, step Step) (string, int, error) {
	sess := model.Session{}
	sess.ClinicID, _ = h.stringArg(step.Args, "clinic")
	sess.PatientID, _ = h.stringArg(step.Args, "patient")
	sess.SessionDate, _ = h.stringArg(step.Args, "date")
	if v, ok := h.stringArg(step.Args, "type"); ok {
		sess.SessionType = model.SessionType(v)
	}
	if v, ok := h.stringArg(step.Args, "mode"); ok {
		sess.Mode = model.SessionMode(v)
	}
	if v, ok := h.stringArg(step.Args, "status"); ok {
		sess.Status = model.SessionStatus(v)
	}
	if v, ok := h.intArg(step.Args, "duration"); ok {
		sess.ScheduledDuration = &v
	}
	sess.MainComplaint = h.stringPtrArg(step.Args, "main_complaint")
	sess.Hypotheses = h.stringPtrArg(step.Args, "hypotheses")
	sess.Interventions = h.stringPtrArg(step.Args, "interventions")
	sess.Observations = h.stringPtrArg(step.Args, "observations")
	sess.AISuggestions = h.stringPtrArg(step.Args, "ai_suggestions")

	created, err := h.svc.CreateSession(ctx, step.Actor, sess)
	if err != nil {
		code, cerr := domainCode(err)
		return code, 0, cerr
	}
	h.bindRef(step.Ref, created.ID)
	n, err := h.countHistory(ctx, created.ID)
	return "", n, err
}

func (h *Harness) opSessionUpdate(ctx context.Context, step Step) (string, int, error) {
	id, _ := h.stringArg(step.Args, "session")

	before, err := h.countHistory(ctx, id)
	if err != nil {
		return "", 0, err
	}

	var u model.SessionUpdate
	if v, ok := h.stringArg(step.Args, "date"); ok {
		u.SessionDate = &v
	}
	if v, ok := h.stringArg(step.Args, "type"); ok {
		t := model.SessionType(v)
		u.SessionType = &t
	}
	if v, ok := h.stringArg(step.Args, "mode"); ok {
		m := model.SessionMode(v)
		u.Mode = &m
	}
	if v, ok := h.stringArg(step.Args, "status"); ok {
		st := model.SessionStatus(v)
		u.Status = &st
	}
	if v, ok := h.intArg(step.Args, "duration"); ok {
		u.ScheduledDuration = &v
	}
	u.MainComplaint = h.stringPtrArg(step.Args, "main_complaint")
	u.Hypotheses = h.stringPtrArg(step.Args, "hypotheses")
	u.Interventions = h.stringPtrArg(step.Args, "interventions")
	u.Observations = h.stringPtrArg(step.Args, "observations")
	u.AISuggestions = h.stringPtrArg(step.Args, "ai_suggestions")

	if _, err := h.svc.UpdateSession(ctx, step.Actor, id, u); err != nil {
		code, cerr := domainCode(err)
		return code, 0, cerr
	}
	after, err := h.countHistory(ctx, id)
	return "", after - before, err
}

func (h *Harness) opSessionDelete(ctx context.Context, step Step) (string, int, error) {
	id, _ := h.stringArg(step.Args, "session")

	before, err := h.countHistory(ctx, id)
	if err != nil {
		return "", 0, err
	}
	if err := h.svc.DeleteSession(ctx, step.Actor, id); err != nil {
		code, cerr := domainCode(err)
		return code, 0, cerr
	}
	after, err := h.countHistory(ctx, id)
	return "", after - before, err
}

func (h *Harness) opAttachmentAdd(ctx context.Context, step Step) (string, error) {
	a := model.SessionAttachment{}
	a.SessionID, _ = h.stringArg(step.Args, "session")
	a.FileName, _ = h.stringArg(step.Args, "file_name")
	if v, ok := h.intArg(step.Args, "file_size"); ok {
		a.FileSize = int64(v)
	}
	a.PayloadRef, _ = h.stringArg(step.Args, "payload_ref")

	created, err := h.svc.AddAttachment(ctx, a)
	if err != nil {
		return domainCode(err)
	}
	h.bindRef(step.Ref, created.ID)
	return "", nil
}

func (h *Harness) opAttachmentDelete(ctx context.Context, step Step) (string, error) {
	id, _ := h.stringArg(step.Args, "attachment")
	if err := h.svc.DeleteAttachment(ctx, id); err != nil {
		return domainCode(err)
	}
	return "", nil
}

// --- helpers ---

func (h *Harness) bindRef(ref, id string) {
	if ref != "" {
		h.refs[ref] = id
	}
}

func (h *Harness) countHistory(ctx context.Context, sessionID string) (int, error) {
	entries, err := h.svc.GetHistoryBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// stringArg fetches a string argument, resolving "$ref" values to record
// ids bound earlier in the scenario.
func (h *Harness) stringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(s, "$") {
		if id, ok := h.refs[s[1:]]; ok {
			return id, true
		}
	}
	return s, true
}

func (h *Harness) stringPtrArg(args map[string]interface{}, key string) *string {
	if v, ok := h.stringArg(args, key); ok {
		return &v
	}
	return nil
}

func (h *Harness) intArg(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// domainCode maps domain errors to their code for the trace; any other
// error is an infrastructure failure and aborts the scenario.
func domainCode(err error) (string, error) {
	var derr *model.Error
	if errors.As(err, &derr) {
		return string(derr.Code), nil
	}
	return "", err
}

// sessionField reads a session field by its scenario name.
func sessionField(s model.Session, name string) interface{} {
	switch name {
	case "date":
		return s.SessionDate
	case "type":
		return string(s.SessionType)
	case "mode":
		return string(s.Mode)
	case "status":
		return string(s.Status)
	case "duration":
		if s.ScheduledDuration == nil {
			return nil
		}
		return *s.ScheduledDuration
	case "main_complaint":
		return strVal(s.MainComplaint)
	case "hypotheses":
		return strVal(s.Hypotheses)
	case "interventions":
		return strVal(s.Interventions)
	case "observations":
		return strVal(s.Observations)
	case "ai_suggestions":
		return strVal(s.AISuggestions)
	}
	return nil
}

func strVal(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
