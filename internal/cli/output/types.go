package output

import "time"

// TransformOutput is the JSON document of the transform command.
type TransformOutput struct {
	RunID            string   `json:"run_id,omitempty"`
	TrainShape       [2]int   `json:"train_shape"`
	TestShape        [2]int   `json:"test_shape"`
	Columns          []string `json:"columns"`
	Target           string   `json:"target"`
	ArtifactPath     string   `json:"artifact_path"`
	ArtifactChecksum string   `json:"artifact_checksum"`
	ArtifactSize     int64    `json:"artifact_size"`
	TrainArrayPath   string   `json:"train_array_path,omitempty"`
	TestArrayPath    string   `json:"test_array_path,omitempty"`
}

// InspectOutput is the JSON document of the inspect command.
type InspectOutput struct {
	Path         string       `json:"path"`
	Checksum     string       `json:"checksum"`
	FeatureNames []string     `json:"feature_names"`
	Branches     []BranchInfo `json:"branches"`
}

// BranchInfo describes one fitted branch of the preprocessor.
type BranchInfo struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Steps   []StepInfo `json:"steps"`
}

// StepInfo describes one fitted step and its learned statistics.
type StepInfo struct {
	Name  string     `json:"name"`
	Type  string     `json:"type"`
	Stats []StatInfo `json:"stats,omitempty"`
}

// StatInfo is one learned statistic of a step.
type StatInfo struct {
	Feature string `json:"feature"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}

// RunsOutput is the JSON document of the runs command.
type RunsOutput struct {
	Runs []RunInfo `json:"runs"`
}

// RunInfo is one recorded run.
type RunInfo struct {
	ID               string     `json:"id"`
	Environment      string     `json:"environment"`
	Status           string     `json:"status"`
	TrainPath        string     `json:"train_path"`
	TestPath         string     `json:"test_path"`
	ArtifactPath     string     `json:"artifact_path,omitempty"`
	ArtifactChecksum string     `json:"artifact_checksum,omitempty"`
	TrainRows        int        `json:"train_rows"`
	TestRows         int        `json:"test_rows"`
	FeatureCount     int        `json:"feature_count"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	DurationMS       int64      `json:"duration_ms"`
	Error            string     `json:"error,omitempty"`
}
