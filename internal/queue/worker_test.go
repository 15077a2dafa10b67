package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DartonStaker/appapost/internal/policy"
)

func TestMemoryStoreOnlyReturnsDueJobs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	due := NewJob("u1", "p1", "v1", policy.X, now.Add(-time.Minute))
	future := NewJob("u1", "p2", "v2", policy.X, now.Add(time.Hour))
	if err := store.Enqueue(ctx, future); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.Enqueue(ctx, due); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	jobs, err := store.DequeueDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(jobs) != 1 || jobs[0].PostID != "p1" {
		t.Fatalf("unexpected jobs %+v", jobs)
	}

	n, _ := store.Len(ctx)
	if n != 1 {
		t.Fatalf("expected future job retained, len=%d", n)
	}
}

func TestWorkerRetriesWithBackoffThenDeadLetters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var executions int
	var dead []Job
	worker := NewWorker(WorkerConfig{
		Store: store,
		Executor: ExecutorFunc(func(ctx context.Context, job Job) error {
			executions++
			return errors.New("platform rejected the post")
		}),
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		OnDeadLetter: func(job Job, err error) {
			dead = append(dead, job)
		},
	})

	if err := store.Enqueue(ctx, NewJob("u1", "p1", "v1", policy.TikTok, time.Now().Add(-time.Second))); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for i := 0; i < 3; i++ {
		time.Sleep(5 * time.Millisecond)
		if err := worker.Drain(ctx); err != nil {
			t.Fatalf("drain: %v", err)
		}
	}

	if executions != 3 {
		t.Fatalf("expected 3 attempts, got %d", executions)
	}
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead-lettered job, got %d", len(dead))
	}
	if dead[0].Attempts != 3 || dead[0].LastError == "" {
		t.Fatalf("expected terminal error recorded, got %+v", dead[0])
	}
	if n, _ := store.Len(ctx); n != 0 {
		t.Fatalf("expected empty queue after dead-letter, len=%d", n)
	}
}

func TestWorkerSuccessConsumesJob(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var executions int
	worker := NewWorker(WorkerConfig{
		Store: store,
		Executor: ExecutorFunc(func(ctx context.Context, job Job) error {
			executions++
			return nil
		}),
	})

	if err := store.Enqueue(ctx, NewJob("u1", "p1", "v1", policy.X, time.Now().Add(-time.Second))); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := worker.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if err := worker.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if executions != 1 {
		t.Fatalf("expected single execution, got %d", executions)
	}
}
