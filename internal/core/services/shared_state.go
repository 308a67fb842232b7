package services

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driving"
)

// Ensure SharedState implements the interface.
var _ driving.AuthStatePublisher = (*SharedState)(nil)

// UploadView is the upload state shown to the user.
// Notice, when set, takes precedence over Status.
type UploadView struct {
	Status domain.UploadStatus
	Notice string
	FileID string
}

// Display renders the view. An idle upload with no notice renders empty.
func (v UploadView) Display() string {
	if v.Notice != "" {
		return v.Notice
	}
	if v.Status.Phase == domain.UploadIdle {
		return ""
	}
	return v.Status.DisplayString()
}

// Snapshot is a point-in-time copy of every shared field.
type Snapshot struct {
	Capturing          bool
	Recording          bool
	Microphone         bool
	SourceName         string
	RecordingStartedAt time.Time
	Upload             UploadView
	Auth               domain.AuthState
	Events             []domain.MeetingEvent
}

// SharedState is the state shared between the orchestrator, background
// tasks and the presentation layer. Each field group has its own lock and
// every accessor copies values out; no lock is held across a call.
type SharedState struct {
	capturing  atomic.Bool
	recording  atomic.Bool
	microphone atomic.Bool

	sourceMu   sync.Mutex
	sourceName string

	recordingMu        sync.Mutex
	recordingStartedAt time.Time

	uploadMu  sync.Mutex
	upload    UploadView
	uploadGen uint64

	authMu        sync.Mutex
	auth          domain.AuthState
	authListeners []func(domain.AuthState)

	credMu sync.Mutex
	cred   *domain.Credential

	eventsMu sync.Mutex
	events   []domain.MeetingEvent
}

// NewSharedState creates state with no source selected.
func NewSharedState() *SharedState {
	return &SharedState{sourceName: domain.NoSourceSelected}
}

func (s *SharedState) Capturing() bool { return s.capturing.Load() }
func (s *SharedState) SetCapturing(v bool) { s.capturing.Store(v) }
func (s *SharedState) Recording() bool { return s.recording.Load() }
func (s *SharedState) Microphone() bool { return s.microphone.Load() }
func (s *SharedState) SetMicrophone(v bool) { s.microphone.Store(v) }

// ToggleMicrophone flips the microphone flag and returns the new value.
func (s *SharedState) ToggleMicrophone() bool {
	for {
		old := s.microphone.Load()
		if s.microphone.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// SetRecording updates the recording flag and its start time.
func (s *SharedState) SetRecording(v bool, startedAt time.Time) {
	s.recordingMu.Lock()
	if v {
		s.recordingStartedAt = startedAt
	} else {
		s.recordingStartedAt = time.Time{}
	}
	s.recordingMu.Unlock()
	s.recording.Store(v)
}

// RecordingStartedAt returns the start of the current recording, or zero.
func (s *SharedState) RecordingStartedAt() time.Time {
	s.recordingMu.Lock()
	defer s.recordingMu.Unlock()
	return s.recordingStartedAt
}

// RecordingElapsed renders the current recording duration as MM:SS.
func (s *SharedState) RecordingElapsed(now time.Time) string {
	started := s.RecordingStartedAt()
	if started.IsZero() {
		return domain.FormatElapsed(0)
	}
	return domain.FormatElapsed(now.Sub(started))
}

func (s *SharedState) SourceName() string {
	s.sourceMu.Lock()
	defer s.sourceMu.Unlock()
	return s.sourceName
}

func (s *SharedState) SetSourceName(name string) {
	s.sourceMu.Lock()
	defer s.sourceMu.Unlock()
	s.sourceName = name
}

// HasSource reports whether a real source is selected.
func (s *SharedState) HasSource() bool {
	name := s.SourceName()
	return name != "" && name != domain.NoSourceSelected
}

// BeginUpload starts a new upload generation showing notice and returns it.
// Updates tagged with an older generation are ignored.
func (s *SharedState) BeginUpload(notice string) uint64 {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	s.uploadGen++
	s.upload = UploadView{Status: domain.StatusIdle(), Notice: notice}
	return s.uploadGen
}

// MirrorUpload copies a pipeline status into the view.
// Returns false when gen has been superseded.
func (s *SharedState) MirrorUpload(gen uint64, status domain.UploadStatus) bool {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	if gen != s.uploadGen {
		return false
	}
	s.upload.Status = status
	if status.Phase != domain.UploadIdle {
		s.upload.Notice = ""
	}
	if status.Phase == domain.UploadComplete {
		s.upload.FileID = status.FileID
	}
	return true
}

// ShowUploadNotice replaces the notice if gen is current.
func (s *SharedState) ShowUploadNotice(gen uint64, notice string) {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	if gen == s.uploadGen {
		s.upload.Notice = notice
	}
}

// ClearUploadNotice resets the view to idle if gen is current.
func (s *SharedState) ClearUploadNotice(gen uint64) {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	if gen == s.uploadGen {
		s.upload = UploadView{Status: domain.StatusIdle()}
	}
}

// ClearUpload resets the view to idle and supersedes any running generation.
func (s *SharedState) ClearUpload() {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	s.uploadGen++
	s.upload = UploadView{Status: domain.StatusIdle()}
}

// ClearFinishedUpload resets the view to idle unless an upload is still
// in progress. The generation is left alone so a running upload keeps
// mirroring into the view.
func (s *SharedState) ClearFinishedUpload() {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	switch s.upload.Status.Phase {
	case domain.UploadIdle, domain.UploadComplete, domain.UploadFailed:
		s.upload = UploadView{Status: domain.StatusIdle()}
	}
}

// Upload returns a copy of the upload view.
func (s *SharedState) Upload() UploadView {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	return s.upload
}

// PublishAuthState implements driving.AuthStatePublisher.
func (s *SharedState) PublishAuthState(state domain.AuthState) {
	if state.Profile != nil {
		p := *state.Profile
		state.Profile = &p
	}
	s.authMu.Lock()
	s.auth = state
	listeners := slices.Clone(s.authListeners)
	s.authMu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// OnAuthState registers fn to be called after every published auth state.
// fn runs on the publisher's goroutine with no lock held.
func (s *SharedState) OnAuthState(fn func(domain.AuthState)) {
	s.authMu.Lock()
	defer s.authMu.Unlock()
	s.authListeners = append(s.authListeners, fn)
}

func (s *SharedState) AuthState() domain.AuthState {
	s.authMu.Lock()
	defer s.authMu.Unlock()
	state := s.auth
	if state.Profile != nil {
		p := *state.Profile
		state.Profile = &p
	}
	return state
}

// SetCredential stores a copy of cred. Nil clears it.
func (s *SharedState) SetCredential(cred *domain.Credential) {
	var c *domain.Credential
	if cred != nil {
		cp := *cred
		c = &cp
	}
	s.credMu.Lock()
	defer s.credMu.Unlock()
	s.cred = c
}

// Credential returns a copy of the held credential, or nil.
func (s *SharedState) Credential() *domain.Credential {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	if s.cred == nil {
		return nil
	}
	cp := *s.cred
	return &cp
}

// AccessToken returns the held access token, or empty.
func (s *SharedState) AccessToken() string {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	if s.cred == nil {
		return ""
	}
	return s.cred.AccessToken
}

func (s *SharedState) SetEvents(events []domain.MeetingEvent) {
	cp := slices.Clone(events)
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	s.events = cp
}

func (s *SharedState) Events() []domain.MeetingEvent {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	return slices.Clone(s.events)
}

// Snapshot copies every field. Fields are read one lock at a time,
// so the snapshot is not atomic across groups.
func (s *SharedState) Snapshot() Snapshot {
	return Snapshot{
		Capturing:          s.Capturing(),
		Recording:          s.Recording(),
		Microphone:         s.Microphone(),
		SourceName:         s.SourceName(),
		RecordingStartedAt: s.RecordingStartedAt(),
		Upload:             s.Upload(),
		Auth:               s.AuthState(),
		Events:             s.Events(),
	}
}
