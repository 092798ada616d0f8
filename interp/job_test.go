// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import "testing"

func newDoneJob(cmdLine string) *Job {
	bg := &bgProc{done: make(chan struct{}), exit: new(exitStatus)}
	close(bg.done)
	return &Job{CommandLine: cmdLine, State: JobRunning, bg: bg}
}

func TestJobManagerAddAsCurrent(t *testing.T) {
	t.Parallel()

	var jm jobManager
	j1 := jm.addAsCurrent(newDoneJob("sleep 1 &"))
	if j1.ID != 1 || j1.Annotation != JobCurrent {
		t.Fatalf("first job: got id=%d annotation=%v", j1.ID, j1.Annotation)
	}

	j2 := jm.addAsCurrent(newDoneJob("sleep 2 &"))
	if j2.ID != 2 || j2.Annotation != JobCurrent {
		t.Fatalf("second job: got id=%d annotation=%v", j2.ID, j2.Annotation)
	}
	if j1.Annotation != JobPrevious {
		t.Fatalf("first job should have been demoted to previous, got %v", j1.Annotation)
	}
	if jm.currentJob() != j2 {
		t.Fatalf("currentJob should be j2")
	}
	if jm.prevJob() != j1 {
		t.Fatalf("prevJob should be j1")
	}
}

func TestJobManagerResolveJobSpec(t *testing.T) {
	t.Parallel()

	var jm jobManager
	j1 := jm.addAsCurrent(newDoneJob("make build &"))
	j2 := jm.addAsCurrent(newDoneJob("make test &"))

	tests := []struct {
		spec string
		want *Job
	}{
		{"%%", j2},
		{"%+", j2},
		{"%-", j1},
		{"%1", j1},
		{"%2", j2},
		{"%make test", j2},
		{"%nope", nil},
		{"no-percent", nil},
	}
	for _, tc := range tests {
		if got := jm.resolveJobSpec(tc.spec); got != tc.want {
			t.Errorf("resolveJobSpec(%q) = %v, want %v", tc.spec, got, tc.want)
		}
	}
}

func TestJobManagerPoll(t *testing.T) {
	t.Parallel()

	var jm jobManager
	jm.addAsCurrent(newDoneJob("echo done &"))

	done := jm.poll()
	if len(done) != 1 {
		t.Fatalf("expected 1 finished job, got %d", len(done))
	}
	if len(jm.jobs) != 0 {
		t.Fatalf("finished job should have been removed, jobs=%v", jm.jobs)
	}
}

func TestJobMoveToBackgroundErrors(t *testing.T) {
	t.Parallel()

	j := newDoneJob("sleep 1 &")
	j.ID = 3
	if err := j.MoveToBackground(); err == nil {
		t.Fatalf("expected an error, since the job was never stopped")
	}
}
