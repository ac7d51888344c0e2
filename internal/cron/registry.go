package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one unit of periodic maintenance.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order and rejects duplicate names.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Only narrows the registry to a comma separated list of job names. An empty
// list keeps every job.
func (r *Registry) Only(csv string) (*Registry, error) {
	if strings.TrimSpace(csv) == "" {
		return r, nil
	}
	byName := make(map[string]Job, len(r.jobs))
	for _, job := range r.jobs {
		byName[job.Name()] = job
	}
	out := &Registry{names: map[string]struct{}{}}
	for _, raw := range strings.Split(csv, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		job, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown cron job %q", name)
		}
		if err := out.Register(job); err != nil {
			return nil, err
		}
	}
	return out, nil
}
