package scoreintegrationtests

import (
	"os"
	"testing"

	"github.com/Black-And-White-Club/ctf-engine/integration_tests/testutils"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testutils.Shutdown()
	os.Exit(code)
}
