package ipc

import "time"

// Run is the wire representation of a recorded sampling run.
type Run struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	Wells           string    `json:"wells"`
	SamplingSeconds int       `json:"sampling_seconds"`
	BufferSeconds   int       `json:"buffer_seconds"`
	Status          string    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	StartedAt       time.Time `json:"started_at,omitempty"`
	FinishedAt      time.Time `json:"finished_at,omitempty"`
}

// Profile is the wire representation of a calibration profile.
type Profile struct {
	Metabolite string  `json:"metabolite"`
	Gain       float64 `json:"gain"`
	Offset     float64 `json:"offset"`
}

// Sample is the wire representation of a calibrated sensor sample.
type Sample struct {
	Timestamp   time.Time          `json:"timestamp"`
	Counter     uint64             `json:"counter"`
	Well        string             `json:"well,omitempty"`
	Channels    []float64          `json:"channels"`
	Temperature float64            `json:"temperature"`
	Metabolites map[string]float64 `json:"metabolites"`
}

type StatusRequest struct{}

type StatusResponse struct {
	Running     bool      `json:"running"`
	PID         int       `json:"pid"`
	Phase       string    `json:"phase"`
	Well        string    `json:"well,omitempty"`
	Position    int       `json:"position,omitempty"`
	Total       int       `json:"total,omitempty"`
	Tray        string    `json:"tray"`
	Profiles    []Profile `json:"profiles,omitempty"`
	ActiveRun   *Run      `json:"active_run,omitempty"`
	RunsDBPath  string    `json:"runs_db_path"`
	LockPath    string    `json:"lock_path"`
	SessionPath string    `json:"session_path,omitempty"`
	Dropped     uint64    `json:"dropped_frames"`

	RunsTotal     int `json:"runs_total"`
	RunsCompleted int `json:"runs_completed"`
	RunsFailed    int `json:"runs_failed"`
	RunsStopped   int `json:"runs_stopped"`
}

type StopRequest struct{}

type StopResponse struct {
	Stopped bool `json:"stopped"`
}

type TrayRequest struct{}

type TrayResponse struct {
	Phase string `json:"phase"`
}

type RunRequest struct {
	Selection       string `json:"selection"`
	SamplingSeconds int    `json:"sampling_seconds"`
	BufferSeconds   int    `json:"buffer_seconds"`
}

type RunResponse struct {
	RunID string `json:"run_id"`
}

type StopRunRequest struct{}

type StopRunResponse struct {
	Stopped bool `json:"stopped"`
}

type CalibrateRequest struct {
	Metabolite string `json:"metabolite"`
}

type CalibrateResponse struct {
	Profile Profile `json:"profile"`
}

type SetExpectedRequest struct {
	Metabolite    string  `json:"metabolite"`
	Concentration float64 `json:"concentration"`
}

type SetExpectedResponse struct{}

type SetGainRequest struct {
	Metabolite string  `json:"metabolite"`
	Gain       float64 `json:"gain"`
}

type SetGainResponse struct{}

type TemperatureRequest struct {
	Celsius float64 `json:"celsius"`
}

type TemperatureResponse struct{}

type NeedleRequest struct {
	Up bool `json:"up"`
}

type NeedleResponse struct{}

type SampleRequest struct{}

type SampleResponse struct {
	Available bool   `json:"available"`
	Sample    Sample `json:"sample"`
}

type RunsListRequest struct {
	Limit int `json:"limit"`
}

type RunsListResponse struct {
	Runs []Run `json:"runs"`
}

type RunDescribeRequest struct {
	ID string `json:"id"`
}

type RunDescribeResponse struct {
	Run Run `json:"run"`
}

type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int64 `json:"wait_millis"`
}

type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
