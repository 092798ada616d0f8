// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// JobState describes the current execution state of a [Job].
type JobState int

const (
	// JobUnknown is the zero JobState; a Job should never be left in
	// this state once it has been added to a jobManager.
	JobUnknown JobState = iota
	// JobRunning means the job's command is still executing.
	JobRunning
	// JobStopped means the job was suspended. This interpreter runs
	// background jobs as in-process goroutine subshells rather than
	// forked processes attached to a controlling terminal, so nothing
	// currently transitions a Job into this state; it exists for
	// forward compatibility with a real process-group implementation.
	JobStopped
	// JobDone means the job's command has finished running.
	JobDone
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "Running"
	case JobStopped:
		return "Stopped"
	case JobDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// JobAnnotation marks a [Job] as the shell's current or previous job,
// the way bash's "jobs" output prefixes one job with "+" and another
// with "-".
type JobAnnotation int

const (
	JobNone JobAnnotation = iota
	JobCurrent
	JobPrevious
)

func (a JobAnnotation) String() string {
	switch a {
	case JobCurrent:
		return "+"
	case JobPrevious:
		return "-"
	default:
		return ""
	}
}

// Job groups the background process spawned by a single "cmd &"
// statement, along with the bookkeeping the "jobs", "fg", and "bg"
// builtins need to refer back to it.
type Job struct {
	// ID is the shell-internal job number, as used in job specs like
	// "%1". It is assigned by the Runner's jobManager and is never
	// zero once the job has been registered.
	ID int

	// CommandLine is the source text of the statement that started
	// the job, as reconstructed by [Printer.Print].
	CommandLine string

	Annotation JobAnnotation
	State      JobState

	bg *bgProc

	// cancel stops the goroutine subshell running the job. Background
	// jobs here are subshells rather than forked processes with their
	// own process group, so "kill" signals them by cancelling their
	// context instead of calling syscall.Kill directly: any real child
	// process the job started via an ExecHandlerFunc still observes
	// that cancellation and receives a real OS signal, exactly as it
	// does when the top-level shell context is cancelled (see
	// interruptCommand/killCommand in handler_unix.go/handler_windows.go).
	cancel context.CancelFunc
}

// String formats j the way bash's "jobs" builtin prints one line per
// job, e.g. "[1]+  Running    sleep 5 &".
func (j *Job) String() string {
	return fmt.Sprintf("[%d]%-2s %-10s %s", j.ID, j.Annotation, j.State, j.CommandLine)
}

// Done reports whether the job's process has finished. The first
// observation of completion updates State to JobDone.
func (j *Job) Done() bool {
	select {
	case <-j.bg.done:
		j.State = JobDone
		return true
	default:
		return false
	}
}

// Wait blocks until the job finishes and returns its exit status.
func (j *Job) Wait() exitStatus {
	<-j.bg.done
	j.State = JobDone
	return *j.bg.exit
}

// MoveToForeground waits for the job to finish, the way bringing a
// background job into the foreground with "fg" ultimately does. Since
// a Job here is never actually stopped (see [JobStopped]), this is
// equivalent to [Job.Wait]; there is no suspended process to resume
// first.
func (j *Job) MoveToForeground() exitStatus {
	return j.Wait()
}

// MoveToBackground reports an error: every Job tracked by this
// interpreter is already running in the background by construction
// (it was created by a "cmd &" statement), so "bg" has nothing to
// resume, matching real shells' "bg: job has terminated" or
// "job not stopped" behavior for a job that was never suspended.
func (j *Job) MoveToBackground() error {
	return fmt.Errorf("bg: job %d is not stopped", j.ID)
}

// Signal requests that job's process group receive sig, the way the "kill"
// builtin does for a job spec. It cancels the job's context rather than
// calling syscall.Kill directly, since the job itself is a goroutine
// subshell and not a real process; see the comment on [Job.cancel].
func (j *Job) Signal(sig os.Signal) error {
	if j.Done() {
		return fmt.Errorf("kill: job %d has already finished", j.ID)
	}
	if j.cancel == nil {
		return fmt.Errorf("kill: job %d cannot be signalled", j.ID)
	}
	j.cancel()
	return nil
}

// jobManager tracks the [Job]s a [Runner] has spawned via "cmd &".
// The zero jobManager is ready to use.
type jobManager struct {
	jobs []*Job
}

// kill resolves spec to a job (see [jobManager.resolveJobSpec]) and sends
// it sig.
func (jm *jobManager) kill(spec string, sig os.Signal) error {
	job := jm.resolveJobSpec(spec)
	if job == nil {
		return fmt.Errorf("kill: %s: no such job", spec)
	}
	return job.Signal(sig)
}

// addAsCurrent registers job, assigns it the next job ID, and marks it
// as the current job, demoting whatever was current (if anything) to
// previous.
func (jm *jobManager) addAsCurrent(job *Job) *Job {
	for _, j := range jm.jobs {
		switch j.Annotation {
		case JobCurrent:
			j.Annotation = JobPrevious
		case JobPrevious:
			j.Annotation = JobNone
		}
	}
	job.ID = len(jm.jobs) + 1
	job.Annotation = JobCurrent
	jm.jobs = append(jm.jobs, job)
	return job
}

func (jm *jobManager) currentJob() *Job { return jm.find(JobCurrent) }
func (jm *jobManager) prevJob() *Job    { return jm.find(JobPrevious) }

func (jm *jobManager) find(ann JobAnnotation) *Job {
	for _, j := range jm.jobs {
		if j.Annotation == ann {
			return j
		}
	}
	return nil
}

// resolveJobSpec resolves a "%"-prefixed job specifier such as "%1",
// "%+", "%-", or "%foo" (a command-name prefix) to its Job. It
// returns nil if spec isn't "%"-prefixed or names no known job.
func (jm *jobManager) resolveJobSpec(spec string) *Job {
	rest, ok := strings.CutPrefix(spec, "%")
	if !ok {
		return nil
	}
	switch rest {
	case "", "%", "+":
		return jm.currentJob()
	case "-":
		return jm.prevJob()
	}
	if id, err := strconv.Atoi(rest); err == nil {
		for _, j := range jm.jobs {
			if j.ID == id {
				return j
			}
		}
		return nil
	}
	for i := len(jm.jobs) - 1; i >= 0; i-- {
		if strings.HasPrefix(jm.jobs[i].CommandLine, rest) {
			return jm.jobs[i]
		}
	}
	return nil
}

// poll removes every job that has finished since the last call and
// returns them.
func (jm *jobManager) poll() []*Job {
	var done []*Job
	live := jm.jobs[:0]
	for _, j := range jm.jobs {
		if j.Done() {
			done = append(done, j)
		} else {
			live = append(live, j)
		}
	}
	jm.jobs = live
	return done
}

// waitAll blocks until every tracked job has finished.
func (jm *jobManager) waitAll() {
	for _, j := range jm.jobs {
		j.Wait()
	}
	jm.jobs = jm.jobs[:0]
}
