package service

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/InfradynAB/infradyn1-sub003/config"
	"github.com/InfradynAB/infradyn1-sub003/model"
)

func newTestJobStore(maxJobs int) *JobStore {
	return &JobStore{
		jobs:    make(map[string]*model.Document),
		maxJobs: maxJobs,
	}
}

func TestJobStoreSaveAndGet(t *testing.T) {
	store := newTestJobStore(100)

	doc := &model.Document{
		ID:           "test-id-1",
		Filename:     "po.pdf",
		Organization: "acme",
		DocumentType: model.DocTypePurchaseOrder,
		Status:       model.StatusPending,
		CreatedAt:    time.Now(),
	}

	store.Save(doc)

	// Test Get
	retrieved := store.Get("test-id-1")
	if retrieved == nil {
		t.Fatal("Expected to retrieve job")
	}
	if retrieved.Filename != "po.pdf" {
		t.Errorf("Expected filename po.pdf, got %s", retrieved.Filename)
	}

	// Test Get non-existent
	notFound := store.Get("non-existent")
	if notFound != nil {
		t.Error("Expected nil for non-existent job")
	}
}

func TestJobStoreGetByOrganization(t *testing.T) {
	store := newTestJobStore(100)

	store.Save(&model.Document{ID: "1", Organization: "acme", CreatedAt: time.Now()})
	store.Save(&model.Document{ID: "2", Organization: "acme", CreatedAt: time.Now()})
	store.Save(&model.Document{ID: "3", Organization: "globex", CreatedAt: time.Now()})

	acmeJobs := store.GetByOrganization("acme")
	if len(acmeJobs) != 2 {
		t.Errorf("Expected 2 jobs for acme, got %d", len(acmeJobs))
	}

	globexJobs := store.GetByOrganization("globex")
	if len(globexJobs) != 1 {
		t.Errorf("Expected 1 job for globex, got %d", len(globexJobs))
	}

	otherJobs := store.GetByOrganization("other")
	if len(otherJobs) != 0 {
		t.Errorf("Expected 0 jobs for other, got %d", len(otherJobs))
	}
}

func TestJobStoreDelete(t *testing.T) {
	store := newTestJobStore(100)

	store.Save(&model.Document{ID: "delete-me", CreatedAt: time.Now()})

	if store.Get("delete-me") == nil {
		t.Fatal("Expected job to exist before delete")
	}

	store.Delete("delete-me")

	if store.Get("delete-me") != nil {
		t.Error("Expected job to be deleted")
	}
}

func TestJobStoreUpdateStatus(t *testing.T) {
	store := newTestJobStore(100)

	store.Save(&model.Document{
		ID:        "status-test",
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	})

	store.UpdateStatus("status-test", model.StatusProcessing, "")

	doc := store.Get("status-test")
	if doc.Status != model.StatusProcessing {
		t.Errorf("Expected status %s, got %s", model.StatusProcessing, doc.Status)
	}

	// Test update with error message
	store.UpdateStatus("status-test", model.StatusFailed, "parse failed")
	doc = store.Get("status-test")
	if doc.ErrorMsg != "parse failed" {
		t.Errorf("Expected error msg 'parse failed', got '%s'", doc.ErrorMsg)
	}

	// Test update non-existent
	store.UpdateStatus("non-existent", model.StatusCompleted, "")
	// Should not panic
}

func TestJobStoreUpdateParseTask(t *testing.T) {
	store := newTestJobStore(100)

	store.Save(&model.Document{ID: "task-test", CreatedAt: time.Now()})

	store.UpdateParseTask("task-test", "parse-task-123")

	doc := store.Get("task-test")
	if doc.ParseTaskID != "parse-task-123" {
		t.Errorf("Expected parse task ID 'parse-task-123', got '%s'", doc.ParseTaskID)
	}

	found := store.FindByParseTask("parse-task-123")
	if found == nil || found.ID != "task-test" {
		t.Error("Expected to find job by parse task ID")
	}

	if store.FindByParseTask("unknown-task") != nil {
		t.Error("Expected nil for unknown parse task ID")
	}
}

func TestJobStoreUpdateExtracted(t *testing.T) {
	store := newTestJobStore(100)

	store.Save(&model.Document{
		ID:        "extract-test",
		Status:    model.StatusProcessing,
		CreatedAt: time.Now(),
	})

	extracted := &model.ExtractedPurchaseOrder{PONumber: "PO-001"}
	store.UpdateExtracted("extract-test", extracted)

	doc := store.Get("extract-test")
	if doc.Status != model.StatusCompleted {
		t.Errorf("Expected status %s, got %s", model.StatusCompleted, doc.Status)
	}
	if doc.Extracted == nil {
		t.Error("Expected extracted data to be set")
	}

	// Test update non-existent
	store.UpdateExtracted("non-existent", extracted)
	// Should not panic
}

func TestJobStoreGetReturnsSnapshot(t *testing.T) {
	store := newTestJobStore(100)

	store.Save(&model.Document{
		ID:        "snapshot-test",
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	})

	before := store.Get("snapshot-test")
	store.UpdateStatus("snapshot-test", model.StatusProcessing, "")

	// The earlier read must not see the later update.
	if before.Status != model.StatusPending {
		t.Errorf("Expected snapshot to keep status %s, got %s", model.StatusPending, before.Status)
	}

	// Mutating a returned document must not leak into the store.
	before.Status = model.StatusFailed
	if store.Get("snapshot-test").Status != model.StatusProcessing {
		t.Error("Expected store to be unaffected by mutation of a returned document")
	}
}

func TestJobStoreConcurrentReadsAndUpdates(t *testing.T) {
	store := newTestJobStore(100)

	store.Save(&model.Document{
		ID:        "race-test",
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.UpdateStatus("race-test", model.StatusProcessing, "")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				doc := store.Get("race-test")
				if _, err := json.Marshal(doc); err != nil {
					t.Errorf("Failed to marshal document: %v", err)
				}
			}
		}()
	}
	wg.Wait()
}

func TestJobStoreAutoCleanup(t *testing.T) {
	store := newTestJobStore(3) // Max 3 jobs

	// Add 5 jobs
	for i := 0; i < 5; i++ {
		store.Save(&model.Document{
			ID:        string(rune('a' + i)),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
		time.Sleep(10 * time.Millisecond) // Ensure different timestamps
	}

	// Should only have 3 jobs (newest)
	if store.Count() != 3 {
		t.Errorf("Expected 3 jobs after cleanup, got %d", store.Count())
	}

	// Oldest jobs should be removed
	if store.Get("a") != nil {
		t.Error("Expected oldest job 'a' to be removed")
	}
	if store.Get("b") != nil {
		t.Error("Expected second oldest job 'b' to be removed")
	}
}

func TestJobStoreUnlimitedJobs(t *testing.T) {
	store := newTestJobStore(0) // Unlimited

	for i := 0; i < 10; i++ {
		store.Save(&model.Document{
			ID:        string(rune('a' + i)),
			CreatedAt: time.Now(),
		})
	}

	if store.Count() != 10 {
		t.Errorf("Expected 10 jobs, got %d", store.Count())
	}
}

func TestJobStoreCount(t *testing.T) {
	store := newTestJobStore(100)

	if store.Count() != 0 {
		t.Error("Expected 0 jobs initially")
	}

	store.Save(&model.Document{ID: "1", CreatedAt: time.Now()})
	store.Save(&model.Document{ID: "2", CreatedAt: time.Now()})

	if store.Count() != 2 {
		t.Errorf("Expected 2 jobs, got %d", store.Count())
	}
}

func TestGetJobStore(t *testing.T) {
	store := GetJobStore()
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
}

func TestInitJobStoreConfig(t *testing.T) {
	cfg := &config.JobsConfig{MaxJobs: 50}
	InitJobStore(cfg)
	// Should not panic
}
