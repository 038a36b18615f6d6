package queue_test

import (
	"log"
	"os"
	"testing"
	"time"

	"cluster-registration/internal/model"
	"cluster-registration/internal/testutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var testRdb *redis.Client

func TestMain(m *testing.M) {
	rdb, cleanup, err := testutil.SetupRedis()
	if err != nil {
		log.Printf("redis unavailable, stream tests will be skipped: %v", err)
	} else {
		testRdb = rdb
	}

	code := m.Run()
	if cleanup != nil {
		cleanup()
	}
	os.Exit(code)
}

func requireRedis(t *testing.T) {
	t.Helper()
	if testRdb == nil {
		t.Skip("redis not available")
	}
}

func newNotification(registrationID int) *model.RegistrationNotification {
	return &model.RegistrationNotification{
		ID:             uuid.New(),
		RegistrationID: registrationID,
		EventID:        7,
		EventTitle:     "Cluster Meetup",
		ContactName:    "Bob",
		ContactEmail:   "bob@x.com",
		RegisteredAt:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}
