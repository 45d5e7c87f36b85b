package triage

import (
	"context"
	"fmt"
	"sync"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/alert"
)

// Coordinator bounds pipeline cost to one run per distinct cluster label. It
// selects one representative per cluster, fans the pipeline out across
// representatives, and broadcasts each representative's derived fields back
// onto every member of its cluster.
type Coordinator struct {
	engine *Engine
	logger log.Logger
}

// NewCoordinator creates a cluster coordinator around an engine.
func NewCoordinator(engine *Engine, logger log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Coordinator{engine: engine, logger: logger}
}

// Assign selects one representative per distinct label: the first alert
// encountered for each label, in input order. Representatives are deep copies
// with the cluster label already set, so pipeline runs never touch the
// originals. labels must be positional, one per alert.
func (c *Coordinator) Assign(alerts []*alert.Alert, labels []string) (map[string]*alert.Alert, error) {
	if len(labels) != len(alerts) {
		return nil, fmt.Errorf("got %d labels for %d alerts", len(labels), len(alerts))
	}

	representatives := make(map[string]*alert.Alert, len(alerts))
	for i, a := range alerts {
		label := labels[i]
		if _, seen := representatives[label]; seen {
			continue
		}
		rep := a.Clone()
		rep.Cluster = label
		representatives[label] = rep
	}
	return representatives, nil
}

// RunOnce submits every representative to the pipeline concurrently, one task
// per cluster. Tasks share no state; a failed task is dropped from the result
// and does not cancel siblings. The returned map holds only the clusters
// whose pipeline completed.
func (c *Coordinator) RunOnce(ctx context.Context, representatives map[string]*alert.Alert) map[string]*alert.Alert {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]*alert.Alert, len(representatives))
	)

	for label, rep := range representatives {
		wg.Add(1)
		go func(label string, rep *alert.Alert) {
			defer wg.Done()
			if err := c.engine.Run(ctx, rep); err != nil {
				c.logger.Error(ctx, err, "cluster task failed", "cluster", label, "alert_id", rep.ID)
				return
			}
			mu.Lock()
			results[label] = rep
			mu.Unlock()
		}(label, rep)
	}
	wg.Wait()

	return results
}

// Broadcast copies each completed representative's derived fields onto every
// alert sharing its label, leaving each alert's own log entry untouched.
// Every alert receives its cluster label; members of a failed cluster receive
// nothing else, keeping their pre-pipeline values whole rather than partially
// populated.
func (c *Coordinator) Broadcast(alerts []*alert.Alert, labels []string, results map[string]*alert.Alert) {
	for i, a := range alerts {
		label := labels[i]
		a.Cluster = label
		if rep, ok := results[label]; ok {
			a.ApplyDerived(rep)
		}
	}
}
