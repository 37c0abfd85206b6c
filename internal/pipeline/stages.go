package pipeline

import "vidnotes/internal/session"

// Stage names in execution order.
const (
	StageUpload     = "upload"
	StageExtract    = "extract"
	StageTranscribe = "transcribe"
	StageNotes      = "notes"
)

// StageResult is the recorded outcome of one stage.
type StageResult = session.StageResult

// Stage outcomes.
const (
	StageOK      = session.StageOK
	StageFailed  = session.StageFailed
	StageSkipped = session.StageSkipped
)

// StageInfo carries the user-facing wording for a stage.
type StageInfo struct {
	Name     string
	Title    string
	Progress string
	Done     string
}

var stageInfos = []StageInfo{
	{Name: StageUpload, Title: "Upload video", Progress: "Uploading video...", Done: "Video uploaded successfully!"},
	{Name: StageExtract, Title: "Extract audio", Progress: "Extracting audio...", Done: "Audio extracted!"},
	{Name: StageTranscribe, Title: "Transcribe audio", Progress: "Converting audio to text...", Done: "Audio converted to text!"},
	{Name: StageNotes, Title: "Generate cute notes", Progress: "Generating Content-Based Cute Notes...", Done: "Cute notes ready!"},
}

// Stages returns the stage descriptions in execution order.
func Stages() []StageInfo {
	out := make([]StageInfo, len(stageInfos))
	copy(out, stageInfos)
	return out
}

// Describe returns the description for a stage name.
func Describe(name string) (StageInfo, bool) {
	for _, info := range stageInfos {
		if info.Name == name {
			return info, true
		}
	}
	return StageInfo{}, false
}
