package services

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
	"github.com/custodia-labs/recorder/internal/core/ports/driving"
	"github.com/custodia-labs/recorder/internal/logger"
)

// Ensure the orchestrator types implement the interfaces.
var (
	_ driving.CommandSink = (*Orchestrator)(nil)
	_ driven.PickerSink   = (*PickerCell)(nil)
)

// commandQueueSize bounds the command queue.
const commandQueueSize = 64

// PickerCell is a one-slot cell the source picker deposits into.
// A newer result replaces one that has not been taken yet.
type PickerCell struct {
	mu      sync.Mutex
	pending *domain.PickerResult
}

// Deposit implements driven.PickerSink.
func (c *PickerCell) Deposit(result domain.PickerResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &result
}

// Take empties the cell.
func (c *PickerCell) Take() (domain.PickerResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return domain.PickerResult{}, false
	}
	r := *c.pending
	c.pending = nil
	return r, true
}

// OrchestratorConfig tunes the command loop.
type OrchestratorConfig struct {
	CommandTimeout  time.Duration
	MonitorInterval time.Duration
	LoginNotice     time.Duration
	DefaultSize     domain.Size
	Stream          domain.StreamConfig
	Recording       domain.RecordingConfig
}

// OrchestratorConfigFrom builds the loop config from settings.
func OrchestratorConfigFrom(s domain.Settings) OrchestratorConfig {
	return OrchestratorConfig{
		CommandTimeout:  s.Orchestrator.CommandTimeout.D(),
		MonitorInterval: s.Orchestrator.MonitorInterval.D(),
		LoginNotice:     s.Orchestrator.LoginNotice.D(),
		DefaultSize:     s.CaptureSize(),
		Stream:          s.StreamConfig(),
		Recording:       domain.RecordingConfig{OutputDir: s.Paths.RecordingsDir},
	}
}

// Orchestrator is the single consumer of capture commands. Run owns the
// stream, filter, size and recording path; nothing else touches them.
// Observers read flags through SharedState.
type Orchestrator struct {
	commands chan domain.CaptureCommand
	done     chan struct{}
	stopOnce sync.Once
	picker   *PickerCell

	capture  driven.CaptureEngine
	recorder driven.RecordingEngine
	sources  driven.SourcePicker
	session  driving.SessionService
	uploads  driving.UploadService
	state    *SharedState
	cfg      OrchestratorConfig
	now      func() time.Time
	log      logger.Logger

	wg       sync.WaitGroup
	inFlight atomic.Int32

	cancelMu sync.Mutex
	cancels  map[uint64]context.CancelFunc

	// Owned by Run.
	stream driven.Stream
	filter *domain.ContentFilter
	size   domain.Size
}

// NewOrchestrator creates the command loop. Call Run to start it.
func NewOrchestrator(
	capture driven.CaptureEngine,
	recorder driven.RecordingEngine,
	sources driven.SourcePicker,
	session driving.SessionService,
	uploads driving.UploadService,
	state *SharedState,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 50 * time.Millisecond
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 200 * time.Millisecond
	}
	if cfg.DefaultSize == (domain.Size{}) {
		cfg.DefaultSize = domain.DefaultCaptureSize()
	}
	return &Orchestrator{
		commands: make(chan domain.CaptureCommand, commandQueueSize),
		done:     make(chan struct{}),
		picker:   &PickerCell{},
		capture:  capture,
		recorder: recorder,
		sources:  sources,
		session:  session,
		uploads:  uploads,
		state:    state,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.Named("orchestrator"),
		cancels:  make(map[uint64]context.CancelFunc),
		size:     cfg.DefaultSize,
	}
}

// Picker returns the cell the source picker deposits results into.
func (o *Orchestrator) Picker() *PickerCell {
	return o.picker
}

// Send queues a command. It fails once the loop has exited.
func (o *Orchestrator) Send(cmd domain.CaptureCommand) error {
	select {
	case <-o.done:
		return domain.ErrOrchestratorStopped
	default:
	}
	select {
	case o.commands <- cmd:
		return nil
	case <-o.done:
		return domain.ErrOrchestratorStopped
	}
}

// InFlight returns the number of upload tasks still running.
func (o *Orchestrator) InFlight() int {
	return int(o.inFlight.Load())
}

// Wait blocks until every upload task has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Run processes commands until Quit, Logout or ctx is done.
// Uploads still running are cancelled when ctx is done; after Quit or
// Logout they keep going and Wait blocks until they finish. Each iteration drains the picker cell first, then waits up to
// CommandTimeout for a command.
func (o *Orchestrator) Run(ctx context.Context) (domain.ExitReason, error) {
	defer o.stopOnce.Do(func() { close(o.done) })

	timer := time.NewTimer(o.cfg.CommandTimeout)
	defer timer.Stop()

	for {
		o.drainPicker()

		timer.Reset(o.cfg.CommandTimeout)
		select {
		case <-ctx.Done():
			o.shutdown()
			o.cancelUploads()
			return domain.ExitContextDone, ctx.Err()
		case cmd := <-o.commands:
			if reason, exit := o.dispatch(ctx, cmd); exit {
				o.shutdown()
				return reason, nil
			}
		case <-timer.C:
		}
	}
}

func (o *Orchestrator) drainPicker() {
	result, ok := o.picker.Take()
	if !ok {
		return
	}

	name := result.Source.DisplayName()
	filter := result.Filter
	if o.state.Capturing() && o.stream != nil {
		if err := o.capture.UpdateFilter(o.stream, filter); err != nil {
			o.log.Warn("update filter to %s: %v", name, err)
			return
		}
		o.filter = &filter
		o.state.SetSourceName(name)
		o.log.Info("source switched: %s", name)
		return
	}

	o.state.SetSourceName(name)
	o.log.Info("source selected: %s", name)
	o.filter = &filter
	o.size = result.Size
	if o.size == (domain.Size{}) {
		o.size = o.cfg.DefaultSize
	}
	o.startCapture()
}

func (o *Orchestrator) dispatch(ctx context.Context, cmd domain.CaptureCommand) (domain.ExitReason, bool) {
	o.log.Debug("command %s", cmd)

	switch cmd {
	case domain.CmdSelectSource:
		o.selectSource()
	case domain.CmdStartCapture:
		if o.filter == nil {
			o.log.Warn("start capture: %v", domain.ErrNoSource)
			return 0, false
		}
		o.startCapture()
	case domain.CmdStopCapture:
		o.stopRecordingQuietly()
		o.stopCapture()
		o.clearSource()
	case domain.CmdStartRecording:
		o.startRecording()
	case domain.CmdStopRecording:
		o.stopRecording(ctx)
	case domain.CmdCancelRecording:
		o.cancelRecording()
	case domain.CmdToggleMicrophone:
		on := o.state.ToggleMicrophone()
		o.log.Info("microphone capture for next stream: %t", on)
	case domain.CmdQuit:
		return domain.ExitQuit, true
	case domain.CmdLogout:
		return domain.ExitLogout, true
	default:
		o.log.Warn("unknown command %s", cmd)
	}
	return 0, false
}

func (o *Orchestrator) selectSource() {
	o.state.ClearFinishedUpload()
	if o.sources == nil {
		o.log.Warn("select source: no source picker available")
		return
	}
	if o.stream != nil {
		o.sources.PickForStream(o.picker, o.stream)
	} else {
		o.sources.Pick(o.picker)
	}
}

func (o *Orchestrator) startCapture() {
	if o.capture == nil {
		o.log.Warn("start capture: no capture engine available")
		return
	}
	if o.stream != nil {
		o.stopCapture()
	}

	cfg := o.cfg.Stream
	cfg.CaptureMicrophone = o.state.Microphone()
	stream, err := o.capture.StartCapture(*o.filter, o.size, cfg)
	if err != nil {
		o.log.Warn("start capture: %v", err)
		return
	}
	o.stream = stream
	o.state.SetCapturing(true)
	o.log.Info("capturing %s at %s", o.state.SourceName(), o.size)
}

func (o *Orchestrator) stopCapture() {
	if o.stream == nil {
		o.state.SetCapturing(false)
		return
	}
	if err := o.capture.StopCapture(o.stream); err != nil {
		o.log.Warn("stop capture: %v", err)
	}
	o.stream = nil
	o.state.SetCapturing(false)
}

func (o *Orchestrator) clearSource() {
	o.filter = nil
	o.state.SetSourceName(domain.NoSourceSelected)
}

func (o *Orchestrator) startRecording() {
	if !o.state.Capturing() || o.stream == nil {
		o.log.Warn("start recording: %v", domain.ErrNotCapturing)
		return
	}
	if o.state.Recording() {
		return
	}
	if o.recorder == nil {
		o.log.Warn("start recording: no recording engine available")
		return
	}

	path, err := o.recorder.StartRecording(o.stream, o.cfg.Recording)
	if err != nil {
		o.log.Warn("start recording: %v", err)
		return
	}
	o.state.SetRecording(true, o.now())
	o.log.Info("recording to %s", path)
}

// finishRecording stops the recording engine and clears the flag.
func (o *Orchestrator) finishRecording() (string, bool) {
	if !o.state.Recording() {
		return "", false
	}
	path, ok := o.recorder.StopRecording(o.stream)
	o.state.SetRecording(false, time.Time{})
	return path, ok
}

func (o *Orchestrator) stopRecording(ctx context.Context) {
	if !o.state.Recording() {
		o.log.Warn("stop recording: not recording")
		return
	}
	path, ok := o.finishRecording()
	if !ok {
		o.log.Warn("stop recording: no file was written")
		return
	}

	o.stopCapture()
	o.clearSource()
	o.launchUpload(ctx, path)
}

func (o *Orchestrator) stopRecordingQuietly() {
	if path, ok := o.finishRecording(); ok {
		o.log.Info("recording kept at %s without upload", path)
	}
}

func (o *Orchestrator) cancelRecording() {
	if path, ok := o.finishRecording(); ok {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			o.log.Warn("remove cancelled recording: %v", err)
		}
	}
	o.stopCapture()
	o.clearSource()
	o.cancelUploads()
	o.state.ClearUpload()
}

func (o *Orchestrator) shutdown() {
	o.stopRecordingQuietly()
	o.stopCapture()
}

// launchUpload starts an upload task for path. The command loop does not
// wait for it.
func (o *Orchestrator) launchUpload(ctx context.Context, path string) {
	gen := o.state.BeginUpload(domain.PreparingNotice)
	title := o.titleFor(o.now())

	uctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.cancelMu.Lock()
	o.cancels[gen] = cancel
	o.cancelMu.Unlock()

	o.wg.Add(1)
	o.inFlight.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.inFlight.Add(-1)
		defer o.forgetUpload(gen)
		o.runUpload(uctx, gen, path, title)
	}()
}

func (o *Orchestrator) runUpload(ctx context.Context, gen uint64, path, title string) {
	if o.session == nil || o.uploads == nil {
		o.log.Warn("upload skipped for %s: uploads not configured", path)
		o.state.ClearUploadNotice(gen)
		return
	}

	cred, err := o.session.CredentialForUpload(ctx)
	if err != nil {
		o.log.Warn("upload skipped for %s: %v", path, err)
		o.state.ShowUploadNotice(gen, domain.LoginNotice)
		t := time.NewTimer(o.cfg.LoginNotice)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
		o.state.ClearUploadNotice(gen)
		return
	}
	o.state.SetCredential(cred)

	cell := &StatusCell{}
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		req := driving.UploadRequest{FilePath: path, AccessToken: cred.AccessToken, Title: title}
		if _, err := o.uploads.Upload(ctx, req, cell); err != nil {
			o.log.Warn("upload %s: %v", path, err)
		}
	}()

	o.monitor(gen, cell, finished)
	<-finished
}

// monitor mirrors the job status into SharedState every MonitorInterval
// until the job is terminal or the generation is superseded.
func (o *Orchestrator) monitor(gen uint64, cell *StatusCell, finished <-chan struct{}) {
	ticker := time.NewTicker(o.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, seen := cell.Load()
			if !seen {
				continue
			}
			if !o.state.MirrorUpload(gen, status) || status.IsTerminal() {
				return
			}
		case <-finished:
			if status, seen := cell.Load(); seen {
				o.state.MirrorUpload(gen, status)
			}
			return
		}
	}
}

func (o *Orchestrator) cancelUploads() {
	o.cancelMu.Lock()
	defer o.cancelMu.Unlock()
	for gen, cancel := range o.cancels {
		cancel()
		delete(o.cancels, gen)
	}
}

func (o *Orchestrator) forgetUpload(gen uint64) {
	o.cancelMu.Lock()
	defer o.cancelMu.Unlock()
	if cancel, ok := o.cancels[gen]; ok {
		cancel()
		delete(o.cancels, gen)
	}
}

// titleFor names the upload after the meeting in progress, if any.
func (o *Orchestrator) titleFor(t time.Time) string {
	if m, ok := domain.MeetingAt(o.state.Events(), t); ok && m.Summary != "" {
		return m.Summary
	}
	return domain.DefaultTitle(t)
}
