package queue

import (
	"errors"
	"testing"
)

func TestJobsReportTheirErrors(t *testing.T) {
	rqm := NewRequestQueueManager(4, 2)
	defer rqm.Shutdown()

	want := errors.New("boom")
	errc := make(chan error, 1)
	rqm.EnqueueJob(Job{Fn: func() error { return want }, Errc: errc})
	if err := <-errc; !errors.Is(err, want) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	rqm := NewRequestQueueManager(4, 1)
	defer rqm.Shutdown()

	errc := make(chan error, 1)
	rqm.EnqueueJob(Job{Fn: func() error { panic("bad handler") }, Errc: errc})
	if err := <-errc; err == nil {
		t.Fatal("panic should surface as an error")
	}

	rqm.EnqueueJob(Job{Fn: func() error { return nil }, Errc: errc})
	if err := <-errc; err != nil {
		t.Fatalf("worker should keep serving, got %v", err)
	}
}
