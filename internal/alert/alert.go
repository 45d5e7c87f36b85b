// Package alert defines the domain types for automation-failure alerts and
// the log entries they wrap.
package alert

import "time"

// Labels is the metadata attached to a single log entry by the log backend.
// All fields are optional; absent labels marshal to nothing.
type Labels struct {
	DetectedLevel string `json:"detected_level,omitempty"`
	Filename      string `json:"filename,omitempty"`
	Job           string `json:"job,omitempty"`
	ServiceName   string `json:"service_name,omitempty"`
}

// LogEntry is a single log line as returned by the log backend. The timestamp
// is kept in its source-native form (usually a nanosecond epoch string);
// logtime resolves it when an instant is needed. Immutable once constructed.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Labels    Labels `json:"log_labels"`
	Message   string `json:"message"`
}

// Category is the closed set of responsible-team classifications a triaged
// alert can receive.
type Category string

const (
	CategoryCloudInfra    Category = "Cloud Infrastructure / AWS Engineers"
	CategoryClusterAdmins Category = "Kubernetes / OpenShift Cluster Admins"
	CategoryDevOps        Category = "DevOps / CI/CD Engineers (Ansible + Automation Platform)"
	CategoryNetworking    Category = "Networking / Security Engineers"
	CategorySysAdmins     Category = "System Administrators / OS Engineers"
	CategoryAppDevs       Category = "Application Developers / GitOps / Platform Engineers"
	CategoryIAM           Category = "Identity & Access Management (IAM) Engineers"
	CategoryOther         Category = "Other / Miscellaneous"
)

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Categories lists every valid Category, in prompt order.
func Categories() []Category {
	return []Category{
		CategoryCloudInfra,
		CategoryClusterAdmins,
		CategoryDevOps,
		CategoryNetworking,
		CategorySysAdmins,
		CategoryAppDevs,
		CategoryIAM,
		CategoryOther,
	}
}

// Alert is the unit of work threaded through the triage pipeline. LogEntry is
// set at ingestion and never mutated afterwards; the derived fields are each
// written exactly once, in pipeline stage order. Cluster is assigned up front
// by the coordinator and is immutable thereafter.
type Alert struct {
	ID string `json:"id"`

	LogEntry LogEntry `json:"log_entry"`

	Summary         string   `json:"log_summary,omitempty"`
	Classification  Category `json:"expert_classification,omitempty"`
	Cluster         string   `json:"log_cluster,omitempty"`
	NeedMoreContext *bool    `json:"need_more_context,omitempty"`
	SolutionContext string   `json:"context_for_solution,omitempty"`
	Solution        string   `json:"step_by_step_solution,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Clone returns a deep copy. Pipeline runs operate on copies so concurrent
// cluster tasks never share mutable state.
func (a *Alert) Clone() *Alert {
	cp := *a
	if a.NeedMoreContext != nil {
		v := *a.NeedMoreContext
		cp.NeedMoreContext = &v
	}
	return &cp
}

// ApplyDerived copies the pipeline-derived fields from src onto a, leaving
// the identity and the original log entry untouched. This is the broadcast
// step's single write path for non-representative alerts.
func (a *Alert) ApplyDerived(src *Alert) {
	a.Summary = src.Summary
	a.Classification = src.Classification
	a.Cluster = src.Cluster
	a.NeedMoreContext = nil
	if src.NeedMoreContext != nil {
		v := *src.NeedMoreContext
		a.NeedMoreContext = &v
	}
	a.SolutionContext = src.SolutionContext
	a.Solution = src.Solution
}
