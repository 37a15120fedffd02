package businessflow_test

import (
	"testing"

	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/models"
	testingutil "github.com/amirphl/Kusanagi/testing"
)

// withTestDB provisions a throwaway database for the test and skips when
// no postgres server is reachable.
func withTestDB(t *testing.T, fn func(testDB *testingutil.TestDB, fixtures *testingutil.TestFixtures)) {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	defer func() {
		_ = testDB.TeardownTestDB()
	}()

	fn(testDB, testingutil.NewTestFixtures(testDB))
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")
}

func actorFor(user *models.User) businessflow.Actor {
	return businessflow.ActorFromUser(user)
}
