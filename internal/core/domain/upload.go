package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// File-type tags accepted by the storage service.
const (
	FileTypeAudio = "mp3"
	FileTypeVideo = "mp4"
)

// DefaultProvider is the provider tag attached to call metadata.
const DefaultProvider = "Talka Cap Pro"

// Status strings shown outside the pipeline's own states.
const (
	PreparingNotice = "Preparing your recording"
	LoginNotice     = "Please log in to upload recordings"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
}

// InferFileType maps a file name to its canonical file-type tag.
// Unknown extensions are treated as video.
func InferFileType(name string) string {
	if audioExtensions[strings.ToLower(filepath.Ext(name))] {
		return FileTypeAudio
	}
	return FileTypeVideo
}

// UploadPhase is the tag of an UploadStatus.
type UploadPhase int

const (
	UploadIdle UploadPhase = iota
	UploadCreatingFile
	UploadUploadingFile
	UploadCreatingMetadata
	UploadComplete
	UploadFailed
)

// String returns the phase name.
func (p UploadPhase) String() string {
	switch p {
	case UploadIdle:
		return "idle"
	case UploadCreatingFile:
		return "creating_file"
	case UploadUploadingFile:
		return "uploading"
	case UploadCreatingMetadata:
		return "creating_metadata"
	case UploadComplete:
		return "complete"
	default:
		return "failed"
	}
}

// UploadStatus is one state of an upload job.
// Percent is meaningful for UploadUploadingFile, FileID for UploadComplete,
// and Reason for UploadFailed.
type UploadStatus struct {
	Phase   UploadPhase
	Percent int
	FileID  string
	Reason  string
}

func StatusIdle() UploadStatus             { return UploadStatus{Phase: UploadIdle} }
func StatusCreatingFile() UploadStatus     { return UploadStatus{Phase: UploadCreatingFile} }
func StatusCreatingMetadata() UploadStatus { return UploadStatus{Phase: UploadCreatingMetadata} }

// StatusUploading clamps percent to 0..100.
func StatusUploading(percent int) UploadStatus {
	percent = min(max(percent, 0), 100)
	return UploadStatus{Phase: UploadUploadingFile, Percent: percent}
}

func StatusComplete(fileID string) UploadStatus {
	return UploadStatus{Phase: UploadComplete, FileID: fileID}
}

func StatusFailed(reason string) UploadStatus {
	return UploadStatus{Phase: UploadFailed, Reason: reason}
}

// IsTerminal reports whether the job has finished.
func (s UploadStatus) IsTerminal() bool {
	return s.Phase == UploadComplete || s.Phase == UploadFailed
}

// DisplayString renders the status for the presentation layer.
func (s UploadStatus) DisplayString() string {
	switch s.Phase {
	case UploadIdle:
		return "Ready"
	case UploadCreatingFile:
		return "Creating file entry..."
	case UploadUploadingFile:
		return fmt.Sprintf("Uploading... %d%%", s.Percent)
	case UploadCreatingMetadata:
		return "Creating metadata..."
	case UploadComplete:
		return "Upload complete!"
	default:
		return "Upload failed: " + s.Reason
	}
}

// FileEntry is the server response to a create-file request.
type FileEntry struct {
	FileID    string `json:"file_id"`
	UploadURL string `json:"upload_url"`
}

// CallMetadata is attached to an uploaded file.
type CallMetadata struct {
	Title             string    `json:"title"`
	RecordedAt        time.Time `json:"-"`
	Provider          string    `json:"provider"`
	WebcamPrimaryUser bool      `json:"webcam_primary_user"`
	IsPrivate         bool      `json:"is_private"`
	Speakers          []string  `json:"speakers"`
}

// DefaultTitle names a recording that has no matching meeting.
func DefaultTitle(t time.Time) string {
	return "Recording " + t.Format("2006-01-02 15:04")
}

// UploadJob is one upload attempt for one recording.
type UploadJob struct {
	ID        string
	FilePath  string
	FileID    string
	Title     string
	SizeBytes int64
	Status    UploadStatus
	StartedAt time.Time
	EndedAt   time.Time
}

// FileName returns the base name sent to the storage service.
func (j *UploadJob) FileName() string {
	return filepath.Base(j.FilePath)
}

// Duration returns how long the job ran, or zero if it has not ended.
func (j *UploadJob) Duration() time.Duration {
	if j.EndedAt.IsZero() {
		return 0
	}
	return j.EndedAt.Sub(j.StartedAt)
}
