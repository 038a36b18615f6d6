package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cluster-registration/internal/model"
	"cluster-registration/internal/queue"
	"cluster-registration/internal/repository"
	"cluster-registration/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 以真實 Postgres 驗證報名流程：條件式 UPDATE 與唯一索引在併發下的行為
func newRegistrationServiceWithDB() service.RegistrationService {
	return service.NewRegistrationService(
		testDB,
		repository.NewEventRepository(testDB),
		repository.NewRegistrationRepository(testDB),
		nil,
		queue.NewMemoryNotificationQueue(1024, 1),
		time.Second,
	)
}

func countRegistrations(t *testing.T, eventID int) (registrations int, capacityCurrent int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, testDB.QueryRow(ctx, "SELECT COUNT(*) FROM registrations WHERE event_id = $1", eventID).Scan(&registrations))
	require.NoError(t, testDB.QueryRow(ctx, "SELECT capacity_current FROM events WHERE id = $1", eventID).Scan(&capacityCurrent))
	return registrations, capacityCurrent
}

func TestRegistrationFlow_OkThenExists(t *testing.T) {
	setupTestWithTruncate(t)
	ctx := context.Background()
	svc := newRegistrationServiceWithDB()
	eventID := createTestEvent(t, "Meetup", 5, 3, "scheduled")

	first, err := svc.RegisterForEvent(ctx, model.RegisterInput{EventID: eventID, ContactName: "Bob", ContactEmail: "bob@x.com"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeOK, first.Outcome)
	assert.Equal(t, 1, first.RemainingCapacity)

	// email 大小寫不同仍視為同一人
	second, err := svc.RegisterForEvent(ctx, model.RegisterInput{EventID: eventID, ContactName: "Bob", ContactEmail: "BOB@x.com"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeExists, second.Outcome)
	assert.Equal(t, first.Registration.ID, second.Existing.ID)
	svc.WaitNotifications()

	registrations, capacityCurrent := countRegistrations(t, eventID)
	assert.Equal(t, 1, registrations)
	assert.Equal(t, 4, capacityCurrent)
}

func TestRegistrationFlow_OkThenExistsOnLastSlot(t *testing.T) {
	setupTestWithTruncate(t)
	ctx := context.Background()
	svc := newRegistrationServiceWithDB()
	eventID := createTestEvent(t, "Meetup", 1, 0, "scheduled")
	input := model.RegisterInput{EventID: eventID, ContactName: "Ana", ContactEmail: "ana@x.com"}

	first, err := svc.RegisterForEvent(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeOK, first.Outcome)
	assert.Equal(t, 0, first.RemainingCapacity)

	second, err := svc.RegisterForEvent(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeExists, second.Outcome)
	require.NotNil(t, second.Existing)
	assert.Equal(t, first.Registration.ID, second.Existing.ID)
	svc.WaitNotifications()

	registrations, capacityCurrent := countRegistrations(t, eventID)
	assert.Equal(t, 1, registrations)
	assert.Equal(t, 1, capacityCurrent)
}

func TestRegistrationFlow_FullEvent(t *testing.T) {
	setupTestWithTruncate(t)
	svc := newRegistrationServiceWithDB()
	eventID := createTestEvent(t, "Meetup", 10, 10, "scheduled")

	result, err := svc.RegisterForEvent(context.Background(), model.RegisterInput{EventID: eventID, ContactName: "Ana", ContactEmail: "ana@x.com"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFull, result.Outcome)

	registrations, capacityCurrent := countRegistrations(t, eventID)
	assert.Equal(t, 0, registrations)
	assert.Equal(t, 10, capacityCurrent)
}

func TestRegistrationFlow_ConcurrentLastSlot(t *testing.T) {
	setupTestWithTruncate(t)
	ctx := context.Background()
	svc := newRegistrationServiceWithDB()
	eventID := createTestEvent(t, "Meetup", 10, 9, "scheduled")

	const attempts = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make(map[model.RegistrationOutcome]int)
		errs     []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			result, err := svc.RegisterForEvent(ctx, model.RegisterInput{
				EventID:      eventID,
				ContactName:  fmt.Sprintf("User %d", i),
				ContactEmail: fmt.Sprintf("user%d@x.com", i),
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			outcomes[result.Outcome]++
		}(i)
	}
	close(start)
	wg.Wait()
	svc.WaitNotifications()

	assert.Empty(t, errs)
	assert.Equal(t, 1, outcomes[model.OutcomeOK])
	assert.Equal(t, attempts-1, outcomes[model.OutcomeFull])

	registrations, capacityCurrent := countRegistrations(t, eventID)
	assert.Equal(t, 1, registrations)
	assert.Equal(t, 10, capacityCurrent)
}

func TestRegistrationFlow_ConcurrentSameEmail(t *testing.T) {
	setupTestWithTruncate(t)
	ctx := context.Background()
	svc := newRegistrationServiceWithDB()
	eventID := createTestEvent(t, "Meetup", 10, 0, "scheduled")

	const attempts = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make(map[model.RegistrationOutcome]int)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.RegisterForEvent(ctx, model.RegisterInput{EventID: eventID, ContactName: "Bob", ContactEmail: "bob@x.com"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			outcomes[result.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	svc.WaitNotifications()

	assert.Equal(t, 1, outcomes[model.OutcomeOK])
	assert.Equal(t, attempts-1, outcomes[model.OutcomeExists])

	registrations, capacityCurrent := countRegistrations(t, eventID)
	assert.Equal(t, 1, registrations)
	assert.Equal(t, 1, capacityCurrent)
}
