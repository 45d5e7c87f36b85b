// Package ingest extracts failure alerts from raw automation job logs.
//
// Automation platforms write one text blob per job run. A failed run contains
// one or more task blocks whose status line starts with "fatal:" or "error:".
// Extract pulls the last meaningful failure out of such a blob so it can be
// submitted to the triage pipeline.
package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/linnemanlabs/remedy/internal/alert"
)

// taskTimestampLayout matches the header line automation logs print under
// each task, e.g. "Thursday 06 November 2025  11:18:09 +0000".
const taskTimestampLayout = "Monday 02 January 2006  15:04:05 -0700"

var (
	taskErrorPattern = regexp.MustCompile(`(?m)^(?P<log_type>[A-Z ]+)(?: \[(?P<task_name>[^\]]+)\] ?\**$)(?:\n^(?P<timestamp>\w+ \d{2} \w+ \d{4}  \d{2}:\d{2}:\d{2} \+\d{4}).*)?(?:\n^(?P<status>error): \[(?P<host>[^\]]+)\]: )(?P<logmessage>[\w\W]*?)\n\n`)
	taskFatalPattern = regexp.MustCompile(`(?m)^(?P<log_type>[A-Z ]+)(?: \[(?P<task_name>[^\]]+)\] ?\**$)(?:\n^(?P<timestamp>\w+ \d{2} \w+ \d{4}  \d{2}:\d{2}:\d{2} \+\d{4}).*)?(?:\n^(?P<status>fatal): \[(?P<host>[^\]]+)\]: )(?P<logmessage>[\w\W]*?)\n\n`)

	lineFatalPattern  = regexp.MustCompile(`fatal: \[(?P<host>[^\]]+)\]: [^{]* (?P<logmessage>.*)`)
	lineErrorPattern  = regexp.MustCompile(`error: \[(?P<host>[^\]]+)\]: [^{]* (?P<logmessage>.*)`)
	lineFailedPattern = regexp.MustCompile(`failed: \[(?P<host>[^\]]+)\]: [^{]* (?P<logmessage>.*)`)
)

// Extraction is one failure pulled out of a job log.
type Extraction struct {
	TaskName  string
	Host      string
	Status    string
	Timestamp time.Time // zero when the log carries no task timestamp
	Message   string
}

// Entry converts the extraction into a log entry ready for triage submission.
func (e *Extraction) Entry(filename string) alert.LogEntry {
	ts := ""
	if !e.Timestamp.IsZero() {
		ts = strconv.FormatInt(e.Timestamp.UnixNano(), 10)
	}
	return alert.LogEntry{
		Timestamp: ts,
		Labels: alert.Labels{
			DetectedLevel: e.Status,
			Filename:      filename,
		},
		Message: e.Message,
	}
}

// Extract returns the failure a monitoring alert would fire on for this job
// log: the last error-status task block, falling back to the last fatal-status
// block. Failures the playbook ignored (message ends in "ignoring") are
// skipped. The second return is false when the log contains no failure.
func Extract(content string) (*Extraction, bool) {
	matches := filterIgnored(taskErrorPattern, content)
	if len(matches) == 0 {
		matches = filterIgnored(taskFatalPattern, content)
		if len(matches) == 0 {
			return nil, false
		}
	}
	return matches[len(matches)-1], true
}

// ExtractLines scans single-line failure output, where task blocks are not
// available. It returns every fatal, error, and failed line in order.
func ExtractLines(content string) []Extraction {
	var out []Extraction
	for _, line := range strings.Split(content, "\n") {
		for _, p := range []struct {
			re     *regexp.Regexp
			status string
		}{
			{lineFatalPattern, "fatal"},
			{lineErrorPattern, "error"},
			{lineFailedPattern, "failed"},
		} {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			out = append(out, Extraction{
				Host:    m[p.re.SubexpIndex("host")],
				Status:  p.status,
				Message: m[p.re.SubexpIndex("logmessage")],
			})
			break
		}
	}
	return out
}

func filterIgnored(re *regexp.Regexp, content string) []*Extraction {
	var out []*Extraction
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		msg := m[re.SubexpIndex("logmessage")]
		if strings.HasSuffix(msg, "ignoring") {
			continue
		}
		e := &Extraction{
			TaskName: strings.TrimSpace(m[re.SubexpIndex("task_name")]),
			Host:     strings.TrimSpace(m[re.SubexpIndex("host")]),
			Status:   m[re.SubexpIndex("status")],
			Message:  msg,
		}
		if raw := m[re.SubexpIndex("timestamp")]; raw != "" {
			if ts, err := time.Parse(taskTimestampLayout, raw); err == nil {
				e.Timestamp = ts
			}
		}
		out = append(out, e)
	}
	return out
}
