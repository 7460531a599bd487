package analysis

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tacflow/internal/diag"
	"tacflow/internal/facts"
)

// Job names one contract: a facts directory or a snapshot file.
type Job struct {
	Name string
	Path string
}

// Outcome is the per-contract record of a batch run. Err holds the
// contract's failure; one failed contract does not stop the others.
type Outcome struct {
	Job         Job
	Stats       facts.Stats
	Diagnostics int
	Degraded    bool
	Err         error
}

// EmitFunc receives each successful result. It is called from worker
// goroutines and must be safe for concurrent use.
type EmitFunc func(*Result) error

// RunBatch analyses jobs with at most workers contracts in flight
// (workers <= 0 means GOMAXPROCS). Outcomes are returned in job order.
// Only cancellation of ctx aborts the batch.
func RunBatch(ctx context.Context, jobs []Job, opts diag.Options, workers int, log logrus.FieldLogger, emit EmitFunc) ([]Outcome, error) {
	if log == nil {
		log = discard()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Outcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = runJob(gctx, job, opts, log, emit)
			if errors.Is(out[i].Err, context.Canceled) || errors.Is(out[i].Err, context.DeadlineExceeded) {
				return out[i].Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

func runJob(ctx context.Context, job Job, opts diag.Options, log logrus.FieldLogger, emit EmitFunc) Outcome {
	oc := Outcome{Job: job}
	s, loadDiags, err := facts.Open(job.Path)
	if err != nil {
		oc.Err = err
		log.WithField("contract", job.Name).WithError(err).Warn("load failed")
		return oc
	}
	s.Name = job.Name
	oc.Stats = s.Stats()
	r, err := Run(ctx, Input{Store: s, LoadDiags: loadDiags}, opts, log)
	if err != nil {
		oc.Err = err
		log.WithField("contract", job.Name).WithError(err).Warn("analysis failed")
		return oc
	}
	oc.Diagnostics = r.Diags.Len() + r.Dropped
	oc.Degraded = r.Degraded
	if emit != nil {
		oc.Err = emit(r)
	}
	return oc
}

// FindJobs returns one job per directory under root that holds relation
// files and one per snapshot file, sorted by name. Names are paths
// relative to root.
func FindJobs(root string) ([]Job, error) {
	var jobs []Job
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if facts.HasFacts(path) {
				jobs = append(jobs, Job{Name: jobName(root, path), Path: path})
			}
			return nil
		}
		if filepath.Ext(path) == facts.SnapshotExt {
			name := strings.TrimSuffix(jobName(root, path), facts.SnapshotExt)
			jobs = append(jobs, Job{Name: name, Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		if _, err := os.Stat(root); err != nil {
			return nil, err
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs, nil
}

func jobName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
