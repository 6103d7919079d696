package model

import "time"

// ProjectStatus is the lifecycle state of a project run.
type ProjectStatus string

const (
	StatusProcessing ProjectStatus = "processing"
	StatusReady      ProjectStatus = "ready"
	StatusError      ProjectStatus = "error"
)

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusReady, StatusError:
		return true
	default:
		return false
	}
}

// Project is the persisted state of one urban-performance project.
type Project struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Status     ProjectStatus `json:"status"`
	Progress   int           `json:"progress"`
	Generation string        `json:"generation,omitempty"`
	Error      string        `json:"error,omitempty"`
	Bounds     Bounds        `json:"bounds,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Range is the observed minimum and maximum of one indicator.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Bounds maps indicator column names to their range across a project's rows.
type Bounds map[string]Range
